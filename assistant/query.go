package assistant

import (
	"context"
	"sync"
	"time"

	"lexio/model"
)

// StreamState is a point-in-time snapshot of an in-flight streamed query.
type StreamState struct {
	// Text is the answer accumulated so far: content chunks concatenated in
	// receipt order, or the whole answer at once after a welcome/complete.
	Text string

	// Streaming is true while chunks may still arrive.
	Streaming bool

	// Done is true once a terminal chunk was seen or the stream failed.
	Done bool

	// Cancelled is true when the caller aborted the stream.
	Cancelled bool

	Usage   *model.TokenUsage
	Sources []model.SourceCitation

	// Err is the stream failure, nil on success and nil after a cancellation.
	Err error
}

// Stream consumes a streamed query in the background and accumulates its
// state so callers can poll progress, cancel, and read the final answer.
type Stream struct {
	mu    sync.Mutex
	state StreamState

	cancel context.CancelFunc
	done   chan struct{}
}

// StartQuery launches a streamed query and returns immediately. The caller
// must eventually call Cancel or Wait so the underlying connection is
// released; Cancel is safe to call at any point, including after completion,
// which makes it suitable as an unconditional cleanup.
func (c *Client) StartQuery(ctx context.Context, req model.QueryRequest) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{cancel: cancel, done: make(chan struct{})}
	s.state.Streaming = true

	go func() {
		defer close(s.done)
		defer cancel()

		err := c.StreamQuery(ctx, req, s.apply)

		s.mu.Lock()
		defer s.mu.Unlock()
		// Done doubles as the terminal-chunk marker; read it before it is
		// overwritten below, or a cancelled stream would look completed.
		terminal := s.state.Done
		s.state.Streaming = false
		s.state.Done = true
		if ctx.Err() != nil && !terminal {
			s.state.Cancelled = true
			return
		}
		s.state.Err = err
	}()

	return s
}

// apply folds one chunk into the accumulated state.
func (s *Stream) apply(chunk model.StreamChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case (chunk.Type == model.ChunkWelcome || chunk.Type == model.ChunkComplete) && chunk.Content != "":
		// One-shot answers with content (e.g. an upstream cache hit) replace
		// rather than append. A bare completion frame that only carries done
		// and usage must leave the streamed text alone.
		s.state.Text = chunk.Content
	default:
		s.state.Text += chunk.Content
	}

	if chunk.TokenUsage != nil {
		s.state.Usage = chunk.TokenUsage
	}
	if len(chunk.Sources) > 0 {
		s.state.Sources = chunk.Sources
	}
	if chunk.Terminal() {
		s.state.Done = true
	}
	return nil
}

// Snapshot returns the current accumulated state.
func (s *Stream) Snapshot() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Sources = append([]model.SourceCitation(nil), s.state.Sources...)
	return st
}

// Cancel aborts the stream and releases the underlying connection. Aborting
// is not an error: after Cancel, Err stays nil and Cancelled is set.
func (s *Stream) Cancel() {
	s.cancel()
}

// Wait blocks until the stream finishes (terminal chunk, failure, or
// cancellation) and returns the final state.
func (s *Stream) Wait() StreamState {
	<-s.done
	return s.Snapshot()
}

// WaitTimeout is Wait with an upper bound, for callers that must not block
// forever on a stalled transport.
func (s *Stream) WaitTimeout(d time.Duration) (StreamState, bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return s.Snapshot(), true
	case <-t.C:
		return s.Snapshot(), false
	}
}
