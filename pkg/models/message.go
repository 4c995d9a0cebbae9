package models

// Author identifies the sender of a channel message as reported by the
// hosted chat backend.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// RawMessage is the loose message shape received from the chat backend
// (directly or relayed by the forum UI). Any field may be missing; the
// normalizer is responsible for filtering and defaulting.
type RawMessage struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	User      *Author `json:"user,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
	Type      string  `json:"type,omitempty"`
}

// NormalizedMessage is the canonical flat message shape used by the
// digest pipeline. Text is guaranteed non-empty after trimming and the
// author sub-fields are always populated (defaulted when absent).
type NormalizedMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	User      Author `json:"user"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Type      string `json:"type"`
}
