package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"lexio/model"
)

// Conversation is one assistant conversation transcript.
type Conversation struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	MatterID  string              `json:"matter_id,omitempty"`
	Model     string              `json:"model,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Messages  []model.ChatMessage `json:"messages"`
}

// ConversationMetadata is a lightweight view of Conversation for listing.
type ConversationMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MatterID     string    `json:"matter_id,omitempty"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ConversationStorage persists transcripts as JSON files under
// <dataDir>/conversations.
type ConversationStorage struct {
	dir string
}

// NewConversationStorage creates the conversations directory (0700, the
// transcripts contain client material) and returns the store.
func NewConversationStorage(dataDir string) (*ConversationStorage, error) {
	dir := filepath.Join(dataDir, "conversations")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}
	return &ConversationStorage{dir: dir}, nil
}

// Save writes the conversation to disk, assigning an ID and timestamps when
// missing.
func (s *ConversationStorage) Save(conv *Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	path := filepath.Join(s.dir, conv.ID+".json")
	// 0600: transcripts hold privileged client communication.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversation file: %w", err)
	}
	return nil
}

// Load reads one conversation by ID.
func (s *ConversationStorage) Load(id string) (*Conversation, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file: %w", err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// List returns metadata for all conversations, newest first.
func (s *ConversationStorage) List() ([]ConversationMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	var out []ConversationMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue // skip unreadable files
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue // skip corrupted files
		}
		out = append(out, ConversationMetadata{
			ID:           conv.ID,
			Title:        conv.Title,
			MatterID:     conv.MatterID,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a conversation from disk.
func (s *ConversationStorage) Delete(id string) error {
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil {
		return fmt.Errorf("failed to delete conversation file: %w", err)
	}
	return nil
}

// AppendMessage appends one message to a conversation, creating it first if
// it does not exist yet.
func (s *ConversationStorage) AppendMessage(id string, msg model.ChatMessage) error {
	conv, err := s.Load(id)
	if err != nil {
		conv = &Conversation{ID: id}
	}
	conv.Messages = append(conv.Messages, msg)
	return s.Save(conv)
}

// TranscriptSink adapts one conversation to the quickaction.MessageSink port.
type TranscriptSink struct {
	store          *ConversationStorage
	conversationID string
}

// Sink returns a sink that appends to the given conversation, creating it
// (with a fresh UUID) when id is empty.
func (s *ConversationStorage) Sink(id string) *TranscriptSink {
	if id == "" {
		id = uuid.New().String()
	}
	return &TranscriptSink{store: s, conversationID: id}
}

// ConversationID returns the conversation this sink appends to.
func (t *TranscriptSink) ConversationID() string { return t.conversationID }

func (t *TranscriptSink) Append(msg model.ChatMessage) error {
	return t.store.AppendMessage(t.conversationID, msg)
}
