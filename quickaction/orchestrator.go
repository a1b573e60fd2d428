package quickaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"lexio/apiclient"
	"lexio/model"
)

// Precondition violations. Each is a distinct, synchronous rejection raised
// before any network call.
var (
	ErrActionInProgress       = errors.New("another quick action is already running")
	ErrNoDocuments            = errors.New("no documents selected")
	ErrSingleDocumentRequired = errors.New("this action requires exactly one selected document")
	ErrUnknownAction          = errors.New("unknown quick action")
)

// defaultGraceDelay is how long the in-progress markers linger after a run
// settles. A remount or reload racing the completion still reads "in
// progress" for this window instead of re-enabling the action early. Tunable,
// not load-bearing.
const defaultGraceDelay = 500 * time.Millisecond

// ActionService invokes a named action against the backend.
type ActionService interface {
	RunAction(ctx context.Context, action string, documentIDs []string, model string) (map[string]any, error)
}

// Notifier surfaces user-visible outcome notifications. Every failure path
// produces one; precondition rejections are never silent.
type Notifier interface {
	Success(title, message string)
	Failure(title, message string)
}

// MessageSink records chat messages produced by a run.
type MessageSink interface {
	Append(msg model.ChatMessage) error
}

// Result is the outcome of a completed quick action.
type Result struct {
	Action  string
	Payload map[string]any
	Message model.ChatMessage
}

// RunnerConfig wires a Runner. Service and Markers are required; the rest
// default to no-ops or package defaults.
type RunnerConfig struct {
	Service  ActionService
	Markers  MarkerStore
	Notifier Notifier
	Messages MessageSink

	// Model is passed through to the backend with every action.
	Model string

	// Format maps an opaque action payload to displayable chat content.
	Format func(action string, payload map[string]any) string

	// GraceDelay overrides defaultGraceDelay.
	GraceDelay time.Duration

	Logger *log.Logger
}

// Runner executes quick actions one at a time.
type Runner struct {
	cfg RunnerConfig

	mu     sync.Mutex
	cancel context.CancelFunc

	// gen numbers runs. A scheduled marker clear carries the generation it
	// belongs to and is a no-op once a newer run owns the markers, so a stale
	// grace timer from a cancelled run cannot erase a successor's markers.
	gen uint64
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Markers == nil {
		cfg.Markers = NewMemoryMarkers()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Format == nil {
		cfg.Format = FormatPayload
	}
	if cfg.GraceDelay == 0 {
		cfg.GraceDelay = defaultGraceDelay
	}
	return &Runner{cfg: cfg}
}

// Execute runs the named action over the selected documents. Precondition
// violations reject synchronously without touching the network: a run already
// in progress (never queued), an empty document selection, or the wrong
// document count for the action. On success the result is recorded as an
// assistant chat message; on failure a system message carries the error. The
// in-progress markers are cleared after a short grace delay either way.
func (r *Runner) Execute(ctx context.Context, actionName string, documentIDs []string) (*Result, error) {
	action, ok := Resolve(actionName)
	if !ok {
		r.cfg.Notifier.Failure("Unknown Action", fmt.Sprintf("%q is not a quick action", actionName))
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, actionName)
	}

	runCtx, gen, err := r.begin(ctx, action, documentIDs)
	if err != nil {
		return nil, err
	}

	payload, err := r.cfg.Service.RunAction(runCtx, action.Name, documentIDs, r.cfg.Model)
	if err != nil {
		r.finish(gen)
		// A cancelled run was aborted on purpose; it gets no failure
		// notification and no system message.
		if !errors.Is(err, context.Canceled) {
			r.reportFailure(action, err)
		}
		return nil, err
	}
	r.finish(gen)

	msg := model.ChatMessage{
		Role:      "assistant",
		Content:   r.cfg.Format(action.Name, payload),
		Timestamp: time.Now(),
	}
	r.appendMessage(msg)
	r.cfg.Notifier.Success(action.Name, "Completed successfully")
	r.logf("action %q completed over %d document(s)", action.Name, len(documentIDs))

	return &Result{Action: action.Name, Payload: payload, Message: msg}, nil
}

// begin validates preconditions and, holding the lock, flips the in-progress
// markers so the check-and-set is a single uninterrupted step against other
// callers. Markers are written through to the durable store before any
// network activity so a reload mid-call still observes the run.
func (r *Runner) begin(ctx context.Context, action Action, documentIDs []string) (context.Context, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if active, _, err := r.cfg.Markers.Get(markerActive); err != nil {
		return nil, 0, fmt.Errorf("failed to read action markers: %w", err)
	} else if active == "true" {
		r.cfg.Notifier.Failure("Action In Progress", "Wait for the current action to finish")
		return nil, 0, ErrActionInProgress
	}

	if len(documentIDs) == 0 {
		r.cfg.Notifier.Failure("No Documents Selected", "Select at least one document first")
		return nil, 0, ErrNoDocuments
	}
	if action.RequiresExactlyOne && len(documentIDs) != 1 {
		r.cfg.Notifier.Failure("Select One Document", fmt.Sprintf("%s works on exactly one document", action.Name))
		return nil, 0, ErrSingleDocumentRequired
	}

	if err := r.setMarkers(action.Name, documentIDs); err != nil {
		return nil, 0, fmt.Errorf("failed to persist action markers: %w", err)
	}

	r.gen++
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	return runCtx, r.gen, nil
}

func (r *Runner) setMarkers(name string, documentIDs []string) error {
	m := r.cfg.Markers
	if err := m.Set(markerActive, "true"); err != nil {
		return err
	}
	if err := m.Set(markerName, name); err != nil {
		return err
	}
	if err := m.Set(markerStarted, time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	return m.Set(markerDocuments, strings.Join(documentIDs, ","))
}

// finish schedules the grace-delayed marker clear and releases the cancel
// handle. The delay (rather than an instantaneous clear) closes the race
// where a remount re-reads the markers just as the run settles.
func (r *Runner) finish(gen uint64) {
	r.mu.Lock()
	r.cancel = nil
	r.mu.Unlock()
	time.AfterFunc(r.cfg.GraceDelay, func() { r.clearMarkers(gen) })
}

// Cancel aborts the in-flight action, if any, and clears the markers
// immediately. Unlike natural completion there is no grace delay: the user
// asked for the slot back.
func (r *Runner) Cancel() {
	r.mu.Lock()
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.clearMarkers(gen)
}

// clearMarkers removes the markers written by run gen. It does nothing when a
// newer run has started since: that run owns the markers now.
func (r *Runner) clearMarkers(gen uint64) {
	r.mu.Lock()
	stale := gen != r.gen
	r.mu.Unlock()
	if stale {
		return
	}
	for _, key := range []string{markerActive, markerName, markerStarted, markerDocuments} {
		if err := r.cfg.Markers.Remove(key); err != nil {
			r.logf("failed to clear marker %s: %v", key, err)
		}
	}
}

// GraceDelay reports how long markers linger after a run settles, so callers
// that exit right after Execute can wait out the scheduled clear.
func (r *Runner) GraceDelay() time.Duration { return r.cfg.GraceDelay }

// InProgress reports the currently marked run, if any. A fresh process can
// call this on startup to detect a run that was in flight across a restart.
func (r *Runner) InProgress() (name string, startedAt time.Time, documentIDs []string, active bool) {
	if v, ok, err := r.cfg.Markers.Get(markerActive); err != nil || !ok || v != "true" {
		return "", time.Time{}, nil, false
	}
	name, _, _ = r.cfg.Markers.Get(markerName)
	if v, ok, _ := r.cfg.Markers.Get(markerStarted); ok {
		startedAt, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok, _ := r.cfg.Markers.Get(markerDocuments); ok && v != "" {
		documentIDs = strings.Split(v, ",")
	}
	return name, startedAt, documentIDs, true
}

func (r *Runner) reportFailure(action Action, err error) {
	title := "Action Failed"
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		title = apiErr.Title()
	}
	r.cfg.Notifier.Failure(title, err.Error())
	r.appendMessage(model.ChatMessage{
		Role:      "system",
		Content:   fmt.Sprintf("%s failed: %v", action.Name, err),
		Timestamp: time.Now(),
	})
}

func (r *Runner) appendMessage(msg model.ChatMessage) {
	if r.cfg.Messages == nil {
		return
	}
	if err := r.cfg.Messages.Append(msg); err != nil {
		r.logf("failed to record chat message: %v", err)
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Printf("[quickaction] "+format, args...)
	}
}

type nopNotifier struct{}

func (nopNotifier) Success(title, message string) {}
func (nopNotifier) Failure(title, message string) {}

// FormatPayload is the default payload-to-chat-content mapping: prefer a
// string field the backend conventionally uses, fall back to indented JSON.
func FormatPayload(action string, payload map[string]any) string {
	for _, key := range []string{"result", "response", "summary", "content"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%s completed", action)
	}
	return string(data)
}
