package quickaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lexio/model"
)

type fakeService struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{} // when non-nil, RunAction blocks until closed
	payload map[string]any
	err     error
}

func (s *fakeService) RunAction(ctx context.Context, action string, documentIDs []string, modelName string) (map[string]any, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.payload != nil {
		return s.payload, nil
	}
	return map[string]any{"result": "done"}, nil
}

func (s *fakeService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, title)
}

func (n *recordingNotifier) Failure(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, title)
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []model.ChatMessage
}

func (s *recordingSink) Append(msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func newTestRunner(svc *fakeService) (*Runner, *recordingNotifier, *recordingSink) {
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	r := NewRunner(RunnerConfig{
		Service:    svc,
		Markers:    NewMemoryMarkers(),
		Notifier:   notifier,
		Messages:   sink,
		Model:      "standard",
		GraceDelay: 10 * time.Millisecond,
	})
	return r, notifier, sink
}

func TestExecuteSuccess(t *testing.T) {
	svc := &fakeService{payload: map[string]any{"result": "Found 2 dates"}}
	r, notifier, sink := newTestRunner(svc)

	result, err := r.Execute(context.Background(), "Extract Dates", []string{"doc-1"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Message.Content != "Found 2 dates" {
		t.Errorf("message content = %q", result.Message.Content)
	}
	if result.Message.Role != "assistant" {
		t.Errorf("message role = %q, want assistant", result.Message.Role)
	}
	if len(notifier.successes) != 1 {
		t.Errorf("success notifications = %d, want 1", len(notifier.successes))
	}
	if len(sink.msgs) != 1 {
		t.Errorf("recorded messages = %d, want 1", len(sink.msgs))
	}
}

func TestMutualExclusion(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeService{block: block}
	r, notifier, _ := newTestRunner(svc)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Execute(context.Background(), "Summarize Document", []string{"doc-1"})
	}()

	// Wait until the first run has flipped the markers.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, active := r.InProgress(); active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first run never marked in-progress")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := r.Execute(context.Background(), "Extract Dates", []string{"doc-2"})
	if !errors.Is(err, ErrActionInProgress) {
		t.Fatalf("error = %v, want ErrActionInProgress", err)
	}
	if svc.callCount() != 1 {
		t.Errorf("service calls = %d, want 1 (rejected run must not reach the network)", svc.callCount())
	}
	if name, _, _, active := r.InProgress(); !active || name != "Summarize Document" {
		t.Errorf("running action disturbed: active=%v name=%q", active, name)
	}
	if len(notifier.failures) != 1 {
		t.Errorf("failure notifications = %d, want 1 (rejections are never silent)", len(notifier.failures))
	}

	close(block)
	<-done
}

func TestNoDocumentsRejected(t *testing.T) {
	svc := &fakeService{}
	r, _, _ := newTestRunner(svc)

	_, err := r.Execute(context.Background(), "Extract Dates", nil)
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("error = %v, want ErrNoDocuments", err)
	}
	if svc.callCount() != 0 {
		t.Errorf("service calls = %d, want 0", svc.callCount())
	}
}

func TestReplyToLetterDocumentCount(t *testing.T) {
	tests := []struct {
		name    string
		docs    []string
		wantErr error
	}{
		{"zero documents", nil, ErrNoDocuments},
		{"two documents", []string{"doc-1", "doc-2"}, ErrSingleDocumentRequired},
		{"exactly one", []string{"doc-1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			r, _, _ := newTestRunner(svc)

			_, err := r.Execute(context.Background(), "Reply to Letter", tt.docs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if svc.callCount() != 0 {
					t.Errorf("service calls = %d, want 0", svc.callCount())
				}
				return
			}
			if err != nil {
				t.Errorf("Execute() error = %v", err)
			}
			if svc.callCount() != 1 {
				t.Errorf("service calls = %d, want 1", svc.callCount())
			}
		})
	}
}

func TestUnknownActionRejected(t *testing.T) {
	svc := &fakeService{}
	r, _, _ := newTestRunner(svc)

	_, err := r.Execute(context.Background(), "Launder Money", []string{"doc-1"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("error = %v, want ErrUnknownAction", err)
	}
}

func TestFailureEmitsSystemMessage(t *testing.T) {
	svc := &fakeService{err: errors.New("backend exploded")}
	r, notifier, sink := newTestRunner(svc)

	_, err := r.Execute(context.Background(), "Prepare for Court", []string{"doc-1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.failures) != 1 {
		t.Errorf("failure notifications = %d, want 1", len(notifier.failures))
	}
	if len(sink.msgs) != 1 || sink.msgs[0].Role != "system" {
		t.Fatalf("messages = %+v, want one system message", sink.msgs)
	}
}

func TestGraceDelayedClear(t *testing.T) {
	svc := &fakeService{}
	r, _, _ := newTestRunner(svc)

	if _, err := r.Execute(context.Background(), "Extract Dates", []string{"doc-1"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Immediately after completion the markers must still read in-progress;
	// only after the grace delay do they clear.
	if _, _, _, active := r.InProgress(); !active {
		t.Error("markers cleared instantly; want grace-delayed clear")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, active := r.InProgress(); !active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("markers never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCancelClearsImmediately(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	svc := &fakeService{block: block}
	r, notifier, sink := newTestRunner(svc)

	done := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), "Summarize Document", []string{"doc-1"})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, active := r.InProgress(); active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never marked in-progress")
		}
		time.Sleep(time.Millisecond)
	}

	r.Cancel()

	if _, _, _, active := r.InProgress(); active {
		t.Error("markers still set right after Cancel; want immediate clear")
	}

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if len(notifier.failures) != 0 {
		t.Errorf("failure notifications = %d, want 0 (cancellation is not an error)", len(notifier.failures))
	}
	if len(sink.msgs) != 0 {
		t.Errorf("messages = %d, want 0 after cancellation", len(sink.msgs))
	}
}

func TestStaleGraceTimerDoesNotClearNewRun(t *testing.T) {
	blockA := make(chan struct{})
	defer close(blockA)
	svc := &fakeService{block: blockA}
	r := NewRunner(RunnerConfig{
		Service:    svc,
		Markers:    NewMemoryMarkers(),
		GraceDelay: 150 * time.Millisecond,
	})

	doneA := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), "Summarize Document", []string{"doc-1"})
		doneA <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, active := r.InProgress(); active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first run never marked in-progress")
		}
		time.Sleep(time.Millisecond)
	}

	// Cancelling run A clears its markers immediately but still leaves a
	// grace timer behind.
	r.Cancel()
	if err := <-doneA; !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}

	// Run B starts inside A's grace window and must own the markers for its
	// whole lifetime.
	blockB := make(chan struct{})
	svc.mu.Lock()
	svc.block = blockB
	svc.mu.Unlock()

	doneB := make(chan struct{})
	go func() {
		defer close(doneB)
		r.Execute(context.Background(), "Extract Dates", []string{"doc-2"})
	}()

	deadline = time.Now().Add(2 * time.Second)
	for {
		if name, _, _, active := r.InProgress(); active && name == "Extract Dates" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second run never marked in-progress")
		}
		time.Sleep(time.Millisecond)
	}

	// Outlive A's grace timer, then verify B's markers survived it.
	time.Sleep(2 * r.GraceDelay())
	if name, _, _, active := r.InProgress(); !active || name != "Extract Dates" {
		t.Fatalf("markers: active=%v name=%q; a stale grace timer erased the running action", active, name)
	}
	if _, err := r.Execute(context.Background(), "Prepare for Court", []string{"doc-3"}); !errors.Is(err, ErrActionInProgress) {
		t.Errorf("error = %v, want ErrActionInProgress while the second run is in flight", err)
	}

	close(blockB)
	<-doneB
}

func TestMarkersSurviveRunnerRestart(t *testing.T) {
	markers := NewMemoryMarkers()
	block := make(chan struct{})
	defer close(block)
	svc := &fakeService{block: block}
	r1 := NewRunner(RunnerConfig{Service: svc, Markers: markers, GraceDelay: time.Millisecond})

	go r1.Execute(context.Background(), "Extract Dates", []string{"doc-1", "doc-2"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, active := r1.InProgress(); active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never marked in-progress")
		}
		time.Sleep(time.Millisecond)
	}

	// A second runner over the same store plays the part of a reloaded
	// process: it must observe the run and reject a duplicate submission.
	r2 := NewRunner(RunnerConfig{Service: svc, Markers: markers})
	name, _, docs, active := r2.InProgress()
	if !active || name != "Extract Dates" || len(docs) != 2 {
		t.Errorf("restarted runner sees active=%v name=%q docs=%v", active, name, docs)
	}
	if _, err := r2.Execute(context.Background(), "Summarize Document", []string{"doc-3"}); !errors.Is(err, ErrActionInProgress) {
		t.Errorf("error = %v, want ErrActionInProgress across restart", err)
	}
}
