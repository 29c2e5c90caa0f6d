package digest

import (
	"context"
	"time"
)

// Action selects which derived artifact to produce.
type Action string

const (
	ActionSummary   Action = "summary"
	ActionKeyPoints Action = "keypoints"
	ActionTopics    Action = "topics"
)

// TokenUsage mirrors provider-reported token counts.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add accumulates another call's usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Total returns prompt + completion tokens.
func (u TokenUsage) Total() int { return u.PromptTokens + u.CompletionTokens }

// GenerationOptions are per-call AI generation knobs.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completion is the result of one AI call.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// CompletionClient is the injected AI call capability. Provider errors are
// propagated, not retried.
type CompletionClient interface {
	GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (*Completion, error)
	Model() string
}

// Chapter is a named, externally-defined segment of the source transcript.
type Chapter struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Request is the orchestrator's uniform entry input across action types.
type Request struct {
	VideoID       string    `json:"video_id"`
	Title         string    `json:"title"`
	Transcript    string    `json:"transcript"`
	Chapters      []Chapter `json:"chapters,omitempty"`
	Action        Action    `json:"action"`
	Lang          string    `json:"lang,omitempty"`
	MarkerPattern string    `json:"marker_pattern,omitempty"` // derive chapters from transcript when none supplied
}

// ResultItem is one key point or topic.
type ResultItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Result is the orchestrator's merged output plus aggregated accounting.
type Result struct {
	Action         Action        `json:"action"`
	Text           string        `json:"text,omitempty"`
	Items          []ResultItem  `json:"items,omitempty"`
	Usage          TokenUsage    `json:"usage"`
	Model          string        `json:"model"`
	ProcessingTime time.Duration `json:"processing_time"`
	ChapterCount   int           `json:"chapter_count"`
	Consolidated   bool          `json:"consolidated"`
	PartialFailure bool          `json:"partial_failure"`
	FailedChapters []string      `json:"failed_chapters,omitempty"`
}

// DigestPayload is the task payload for background digest generation.
type DigestPayload struct {
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Chapters   []Chapter `json:"chapters,omitempty"`
	Action     Action    `json:"action"`
	Lang       string    `json:"lang"`
}

type generateDigestDTO struct {
	VideoID       string    `json:"videoId" binding:"required"`
	Title         string    `json:"title"`
	Transcript    string    `json:"transcript"`
	Chapters      []Chapter `json:"chapters"`
	Action        string    `json:"action"`
	Lang          string    `json:"lang"`
	MarkerPattern string    `json:"markerPattern"`
	Async         bool      `json:"async"`
}
