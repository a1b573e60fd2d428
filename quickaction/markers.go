package quickaction

import "sync"

// MarkerStore is the durable key-value port the runner uses for its
// in-progress markers. Backing it with durable storage (see the storage
// package) is what lets a restarted process observe a run that was in flight
// when it died, so an accidental resubmission right after a restart is still
// rejected.
type MarkerStore interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Marker keys written by the runner.
const (
	markerActive    = "quick_action_active"
	markerName      = "quick_action_name"
	markerStarted   = "quick_action_started_at"
	markerDocuments = "quick_action_documents"
)

// MemoryMarkers is an in-process MarkerStore for tests and for callers that
// explicitly opt out of durable markers.
type MemoryMarkers struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryMarkers creates an empty in-memory marker store.
func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{m: make(map[string]string)}
}

func (s *MemoryMarkers) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryMarkers) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryMarkers) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
