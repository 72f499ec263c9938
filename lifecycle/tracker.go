package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/metrics"
	"github.com/getpup/pupsourcing/es"
)

// ErrIllegalTransition is returned when a run tries to move between phases
// that are not connected.
var ErrIllegalTransition = errors.New("illegal run state transition")

var transitions = map[savedobjects.RunState][]savedobjects.RunState{
	savedobjects.RunStateInit:             {savedobjects.RunStateDetermineVersion, savedobjects.RunStateFailed},
	savedobjects.RunStateDetermineVersion: {savedobjects.RunStateRunning, savedobjects.RunStateDone, savedobjects.RunStateFailed},
	savedobjects.RunStateRunning:          {savedobjects.RunStateAdvanceMarker, savedobjects.RunStateFailed},
	savedobjects.RunStateAdvanceMarker:    {savedobjects.RunStateDone, savedobjects.RunStateFailed},
}

// Config holds configuration for the lifecycle Tracker.
type Config struct {
	// RunID identifies the run in log entries.
	RunID string

	// Collector reports the current phase as a gauge (optional).
	Collector *metrics.Collector

	// Logger is for observability (optional).
	Logger es.Logger
}

// Transition records one phase change.
type Transition struct {
	From savedobjects.RunState
	To   savedobjects.RunState
	At   time.Time
}

// Tracker holds the phase of a single migration run and enforces the order
// INIT -> DETERMINE_VERSION -> (DONE | RUNNING -> (ADVANCE_MARKER -> DONE | FAILED)).
// Any non-terminal phase may move to FAILED.
type Tracker struct {
	mu      sync.RWMutex
	config  Config
	state   savedobjects.RunState
	history []Transition
}

// New creates a Tracker in the INIT phase.
func New(cfg Config) *Tracker {
	t := &Tracker{
		config: cfg,
		state:  savedobjects.RunStateInit,
	}
	if cfg.Collector != nil {
		cfg.Collector.SetRunState(string(t.state))
	}
	return t
}

// Transition moves the run to state and logs the change if a logger is provided.
// Returns ErrIllegalTransition if state is not reachable from the current phase.
func (t *Tracker) Transition(ctx context.Context, state savedobjects.RunState) error {
	t.mu.Lock()
	from := t.state
	if !slices.Contains(transitions[from], state) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, state)
	}
	t.state = state
	t.history = append(t.history, Transition{From: from, To: state, At: time.Now()})
	t.mu.Unlock()

	if t.config.Collector != nil {
		t.config.Collector.SetRunState(string(state))
	}
	if t.config.Logger != nil {
		t.config.Logger.Info(ctx, "run state updated", "runID", t.config.RunID, "from", from, "to", state)
	}
	return nil
}

// Fail moves the run to FAILED unless it already reached a terminal phase.
func (t *Tracker) Fail(ctx context.Context) {
	if t.Terminal() {
		return
	}
	_ = t.Transition(ctx, savedobjects.RunStateFailed)
}

// State returns the current phase.
func (t *Tracker) State() savedobjects.RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Terminal reports whether the run reached DONE or FAILED.
func (t *Tracker) Terminal() bool {
	s := t.State()
	return s == savedobjects.RunStateDone || s == savedobjects.RunStateFailed
}

// History returns the transitions recorded so far, oldest first.
func (t *Tracker) History() []Transition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.history)
}
