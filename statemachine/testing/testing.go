// Package testing provides testing utilities for state machine engines.
//
//nolint:err113,varnamelen // Test engine uses dynamic errors; short names idiomatic
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/rockethooks/onboarding/statemachine"
	"github.com/stretchr/testify/require"
)

// TraceEntry records a single committed change.
type TraceEntry[C any] struct {
	Timestamp time.Time
	From      string
	Event     string // empty for context updates
	To        string
	Context   C // Snapshot of context after the commit
}

// Recorder collects commits through a statemachine.CommitHook.
type Recorder[C any] struct {
	mu    sync.Mutex
	trace []TraceEntry[C]
}

// NewRecorder creates an empty recorder.
func NewRecorder[C any]() *Recorder[C] {
	return &Recorder[C]{}
}

// Hook returns the commit hook feeding the recorder.
func (r *Recorder[C]) Hook() statemachine.CommitHook[C] {
	return func(_ context.Context, commit statemachine.Commit[C]) {
		entry := TraceEntry[C]{
			Timestamp: time.Now(),
			From:      commit.From.Name(),
			To:        commit.To.Name(),
			Context:   commit.Context,
		}

		if commit.Event != nil {
			entry.Event = commit.Event.Name()
		}

		r.mu.Lock()
		r.trace = append(r.trace, entry)
		r.mu.Unlock()
	}
}

// Trace returns a copy of the recorded entries.
func (r *Recorder[C]) Trace() []TraceEntry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]TraceEntry[C](nil), r.trace...)
}

// Transitions returns only the entries caused by an event.
func (r *Recorder[C]) Transitions() []TraceEntry[C] {
	var out []TraceEntry[C]

	for _, entry := range r.Trace() {
		if entry.Event != "" {
			out = append(out, entry)
		}
	}

	return out
}

// Path returns the sequence of states entered by transitions, starting with
// the source of the first one.
func (r *Recorder[C]) Path() []string {
	transitions := r.Transitions()
	if len(transitions) == 0 {
		return nil
	}

	path := []string{transitions[0].From}
	for _, entry := range transitions {
		path = append(path, entry.To)
	}

	return path
}

// Reset discards everything recorded so far.
func (r *Recorder[C]) Reset() {
	r.mu.Lock()
	r.trace = nil
	r.mu.Unlock()
}

// Assertion represents a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// TestEngine wraps Engine with a recorder and assertion helpers.
type TestEngine[C statemachine.Cloneable[C]] struct {
	*statemachine.Engine[C]
	*Recorder[C]

	t          *testing.T
	assertions []Assertion
}

// NewTestEngine creates an engine that logs through the test and records
// every commit.
func NewTestEngine[C statemachine.Cloneable[C]](
	t *testing.T,
	table *statemachine.Table[C],
	initial statemachine.State,
	smCtx C,
	opts ...statemachine.Option[C],
) *TestEngine[C] {
	t.Helper()

	recorder := NewRecorder[C]()

	opts = append([]statemachine.Option[C]{
		statemachine.WithName[C](t.Name()),
		statemachine.WithLogger[C](statemachine.NewSlogLogger(slogt.New(t))),
		statemachine.WithCommitHook(recorder.Hook()),
	}, opts...)

	engine, err := statemachine.NewEngine(table, initial, smCtx, opts...)
	require.NoError(t, err, "failed to create engine")

	return &TestEngine[C]{
		Engine:   engine,
		Recorder: recorder,
		t:        t,
	}
}

// MustFire dispatches an event and fails the test if nothing was committed.
func (te *TestEngine[C]) MustFire(event statemachine.Event) {
	te.t.Helper()

	from := te.State().Name()
	require.True(te.t, te.Fire(context.Background(), event),
		"event '%s' should fire from '%s'", event.Name(), from)
}

// AssertRejected checks that an event is a no-op in the current state.
func (te *TestEngine[C]) AssertRejected(event statemachine.Event) {
	te.t.Helper()

	before := te.State().Name()
	fired := te.Fire(context.Background(), event)
	after := te.State().Name()

	assertion := Assertion{
		Name:   fmt.Sprintf("Event '%s' rejected in '%s'", event.Name(), before),
		Passed: !fired && before == after,
	}

	if !assertion.Passed {
		assertion.Error = fmt.Errorf("%w: '%s' moved '%s' to '%s'", ErrUnexpectedTransition, event.Name(), before, after)
	}

	te.assertions = append(te.assertions, assertion)
	require.False(te.t, fired, "event '%s' should be rejected in '%s'", event.Name(), before)
	require.Equal(te.t, before, after, "state should not change")
}

// AssertStateVisited checks if a state was entered or left by a transition.
func (te *TestEngine[C]) AssertStateVisited(stateName string) {
	te.t.Helper()

	matched, err := StateWasVisited[C](stateName).Match(te.Recorder)
	te.record(fmt.Sprintf("State '%s' was visited", stateName), matched, err)
	require.True(te.t, matched, "state '%s' should have been visited", stateName)
}

// AssertTransitionTaken checks if a specific transition occurred.
func (te *TestEngine[C]) AssertTransitionTaken(from, event, to string) {
	te.t.Helper()

	matched, err := TransitionWasTaken[C](from, event, to).Match(te.Recorder)
	te.record(fmt.Sprintf("Transition '%s' --%s--> '%s' was taken", from, event, to), matched, err)
	require.True(te.t, matched, "transition from '%s' on '%s' to '%s' should have been taken", from, event, to)
}

// AssertFinalState checks the current state matches expected.
func (te *TestEngine[C]) AssertFinalState(expected string) {
	te.t.Helper()

	actual := te.State().Name()

	var err error
	if actual != expected {
		err = fmt.Errorf("%w: expected '%s', got '%s'", ErrFinalStateMismatch, expected, actual)
	}

	te.record(fmt.Sprintf("Final state is '%s'", expected), actual == expected, err)
	require.Equal(te.t, expected, actual, "final state should be '%s'", expected)
}

// AssertPath checks the exact sequence of states entered by transitions.
func (te *TestEngine[C]) AssertPath(states ...string) {
	te.t.Helper()

	matched, err := PathEquals[C](states...).Match(te.Recorder)
	te.record(fmt.Sprintf("Path is %v", states), matched, err)
	require.Equal(te.t, states, te.Path(), "unexpected transition path")
}

// GetAssertions returns all assertions made.
func (te *TestEngine[C]) GetAssertions() []Assertion {
	return te.assertions
}

func (te *TestEngine[C]) record(name string, passed bool, err error) {
	te.assertions = append(te.assertions, Assertion{Name: name, Passed: passed, Error: err})
}
