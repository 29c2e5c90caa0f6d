package models

// DigestModel caches AI-generated digests (summaries, key points, topics) per video.
type DigestModel struct {
	Base
	Hash             string      `json:"hash"              gorm:"uniqueIndex;not null"` // hash(videoId + action + lang)
	VideoID          string      `json:"video_id"          gorm:"index;not null"`
	Action           string      `json:"action"            gorm:"index;not null"` // summary | keypoints | topics
	Lang             string      `json:"lang"              gorm:"default:'en'"`
	Text             string      `json:"text"              gorm:"type:text"`
	Items            StringSlice `json:"items"             gorm:"type:json;serializer:json"`
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	Model            string      `json:"model"`
	ProcessingMS     int64       `json:"processing_ms"`
	PartialFailure   bool        `json:"partial_failure"`
}

func (DigestModel) TableName() string { return "digests" }
