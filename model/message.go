package model

import "time"

// ChatMessage represents one turn in a conversation with the assistant.
type ChatMessage struct {
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenUsage is the token accounting attached to a completed assistant reply.
// It is a pass-through payload from the backend; values are not validated
// beyond shape.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SourceCitation identifies a document excerpt the backend used to ground an
// answer (retrieval-augmented generation).
type SourceCitation struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
