package metadata

// Video is the normalized shape served to clients, flattened from the
// provider's snippet/contentDetails/statistics parts.
type Video struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelID    string   `json:"channel_id"`
	ChannelTitle string   `json:"channel_title"`
	PublishedAt  string   `json:"published_at"`
	Duration     string   `json:"duration"` // ISO 8601 as the provider reports it
	ViewCount    string   `json:"view_count"`
	LikeCount    string   `json:"like_count"`
	Tags         []string `json:"tags,omitempty"`
}

// SearchItem is one search hit.
type SearchItem struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channel_title"`
	PublishedAt  string `json:"published_at"`
}

// VideoResult carries the video plus cache provenance.
type VideoResult struct {
	Video     Video `json:"video"`
	FromCache bool  `json:"from_cache"`
}

// SearchResult carries search hits plus cache provenance.
type SearchResult struct {
	Items     []SearchItem `json:"items"`
	FromCache bool         `json:"from_cache"`
}

// QuotaReport summarizes today's metered unit consumption.
type QuotaReport struct {
	Used      int            `json:"used"`
	Limit     int            `json:"limit"`
	Remaining int            `json:"remaining"`
	Breakdown map[string]int `json:"breakdown"`
}

// provider wire shapes (videos.list / search.list responses)

type providerVideoList struct {
	Items []struct {
		ID      string          `json:"id"`
		Snippet providerSnippet `json:"snippet"`

		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`

		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type providerSearchList struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet providerSnippet `json:"snippet"`
	} `json:"items"`
}

type providerSnippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelID    string   `json:"channelId"`
	ChannelTitle string   `json:"channelTitle"`
	PublishedAt  string   `json:"publishedAt"`
	Tags         []string `json:"tags"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}
