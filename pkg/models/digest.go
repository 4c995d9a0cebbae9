package models

// UserSuggestions holds the ordered reply candidates generated for one
// author. Responses preserves generation order (candidate 1..n).
type UserSuggestions struct {
	UserName  string   `json:"userName"`
	Responses []string `json:"responses"`
}

// SuggestionSet maps author id to that author's generated suggestions.
// One entry per distinct author appearing in the transcript.
type SuggestionSet map[string]UserSuggestions

// GenerationFailure is the batch-level error payload placed under the
// "error" key of aiResponses when the generation backend failed for the
// whole batch.
type GenerationFailure struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// DigestRequest is the POST /v1/digest body.
type DigestRequest struct {
	Messages  []RawMessage `json:"messages"`
	ChannelID string       `json:"channelId"`
	UserID    string       `json:"userId"`
	Slug      string       `json:"slug"`
	Timestamp string       `json:"timestamp,omitempty"`
}

// DigestData is the data envelope of a completed digest response.
// AIResponses holds one of three shapes keyed by string: author id ->
// UserSuggestions, "general" -> []string notice, or "error" ->
// GenerationFailure.
type DigestData struct {
	ChannelID         string              `json:"channelId"`
	Slug              string              `json:"slug"`
	MessageCount      int                 `json:"messageCount"`
	ProcessedMessages []NormalizedMessage `json:"processedMessages,omitempty"`
	AIResponses       map[string]any      `json:"aiResponses"`
	Timestamp         string              `json:"timestamp,omitempty"`
}

// DigestResponse is the top-level POST /v1/digest response.
type DigestResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    DigestData `json:"data"`
}

// Snapshot is the persisted best-effort record of the last digest
// computed for a channel, served back by GET /v1/digest.
type Snapshot struct {
	ChannelID string              `json:"channelId"`
	Slug      string              `json:"slug"`
	UserID    string              `json:"userId,omitempty"`
	Messages  []NormalizedMessage `json:"messages"`
	Timestamp string              `json:"timestamp"`
	ExpiresAt int64               `json:"expires_at,omitempty"`
}

// SnapshotData is the data envelope of the GET /v1/digest response.
type SnapshotData struct {
	ChannelID     string              `json:"channelId"`
	Slug          string              `json:"slug"`
	UserID        string              `json:"userId,omitempty"`
	Messages      []NormalizedMessage `json:"messages"`
	TotalMessages int                 `json:"totalMessages"`
	Timestamp     string              `json:"timestamp"`
}
