package model

// QueryRequest is the payload sent to the assistant query endpoint.
//
// Documents and MatterID select the retrieval context; UseRAG controls whether
// the backend grounds the answer in the selected documents. PreviousMessages
// and ConversationID let the backend thread multi-turn conversations.
type QueryRequest struct {
	Query            string        `json:"query"`
	MatterID         string        `json:"client_id,omitempty"`
	Documents        []string      `json:"documents,omitempty"`
	UseRAG           bool          `json:"use_rag"`
	Model            string        `json:"model,omitempty"`
	SystemPrompt     string        `json:"system_prompt,omitempty"`
	ConversationID   string        `json:"conversation_id,omitempty"`
	PreviousMessages []ChatMessage `json:"previous_messages,omitempty"`
}

// QueryResult is the single-shot (non-streaming) assistant response.
type QueryResult struct {
	Response   string           `json:"response"`
	TokenUsage *TokenUsage      `json:"token_usage,omitempty"`
	Cost       float64          `json:"cost,omitempty"`
	Sources    []SourceCitation `json:"sources,omitempty"`
}

// Stream chunk types. The backend frames a streamed reply as a sequence of
// chunks; exactly one terminal chunk (complete, welcome, or error) ends it.
const (
	ChunkContent  = "chunk"
	ChunkComplete = "complete"
	ChunkWelcome  = "welcome"
	ChunkError    = "error"
)

// StreamChunk is one decoded frame of a streamed assistant reply.
//
// Content chunks carry partial text to append in arrival order. Welcome and
// complete chunks carry the whole answer at once (replacing any accumulated
// text) and terminate the stream. A chunk with Done set terminates the stream
// and may carry the final token usage and source list. A chunk with Error set
// fails the stream.
type StreamChunk struct {
	Type       string           `json:"type"`
	Content    string           `json:"content,omitempty"`
	Done       bool             `json:"done,omitempty"`
	Error      string           `json:"error,omitempty"`
	TokenUsage *TokenUsage      `json:"token_usage,omitempty"`
	Sources    []SourceCitation `json:"sources,omitempty"`
}

// Terminal reports whether no further chunks may follow this one.
func (c StreamChunk) Terminal() bool {
	return c.Done || c.Type == ChunkComplete || c.Type == ChunkWelcome || c.Type == ChunkError || c.Error != ""
}

// StreamCallback is called for each decoded chunk of a streamed reply.
// Returning a non-nil error stops the stream.
type StreamCallback func(chunk StreamChunk) error
