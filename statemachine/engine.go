package statemachine

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// stateMachineContextKey is the key used to store observability labels in Go context.
const stateMachineContextKey contextKey = "statemachine_labels"

// Engine drives a context of type C through a transition table.
//
// Every dispatch runs to completion, including commit hooks, while holding the
// engine lock, so transitions are strictly serialized and a hook (for example a
// persistence write) has finished before the next event is looked at.
type Engine[C Cloneable[C]] struct {
	mu        sync.Mutex
	name      string
	table     *Table[C]
	current   State
	smCtx     C
	clock     func() time.Time
	logger    Logger
	recoverFn Recover[C]
	hooks     []CommitHook[C]
	instance  func(C) string
}

// Option configures an Engine.
type Option[C Cloneable[C]] func(*Engine[C])

// WithName sets the machine name used in logs, metrics and spans.
func WithName[C Cloneable[C]](name string) Option[C] {
	return func(e *Engine[C]) {
		e.name = name
	}
}

// WithClock overrides time.Now for Firing.Now.
func WithClock[C Cloneable[C]](clock func() time.Time) Option[C] {
	return func(e *Engine[C]) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger[C Cloneable[C]](logger Logger) Option[C] {
	return func(e *Engine[C]) {
		if logger == nil {
			logger = NopLogger()
		}

		e.logger = logger
	}
}

// WithRecover installs the hook that converts a failed action into a state.
// Without it a failed action is a rejected, side-effect free no-op.
func WithRecover[C Cloneable[C]](fn Recover[C]) Option[C] {
	return func(e *Engine[C]) {
		e.recoverFn = fn
	}
}

// WithCommitHook registers a hook called after every committed change.
func WithCommitHook[C Cloneable[C]](hook CommitHook[C]) Option[C] {
	return func(e *Engine[C]) {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
}

// WithInstance extracts an instance identifier from the context for
// observability labels. The value is hashed before it reaches metrics.
func WithInstance[C Cloneable[C]](instance func(C) string) Option[C] {
	return func(e *Engine[C]) {
		e.instance = instance
	}
}

// NewEngine creates an engine positioned at initial with the given context.
func NewEngine[C Cloneable[C]](table *Table[C], initial State, smCtx C, opts ...Option[C]) (*Engine[C], error) {
	if table == nil {
		return nil, ErrTableRequired
	}

	if initial == nil {
		return nil, ErrInitialStateRequired
	}

	engine := &Engine[C]{
		table:   table,
		current: initial,
		smCtx:   smCtx,
		clock:   time.Now,
		logger:  NewDefaultLogger(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// Name returns the machine name.
func (e *Engine[C]) Name() string {
	return e.name
}

// Table returns the transition table.
func (e *Engine[C]) Table() *Table[C] {
	return e.table
}

// State returns the current state.
func (e *Engine[C]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current
}

// Context returns a copy of the current context.
func (e *Engine[C]) Context() C {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.smCtx.Clone()
}

// Snapshot returns the current state and a copy of the context, read atomically.
func (e *Engine[C]) Snapshot() (State, C) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current, e.smCtx.Clone()
}

// Fire dispatches an event. It returns true iff a transition was committed.
//
// An unknown event, a failed guard or an invalid payload leaves the engine
// untouched and returns false. A failing action is handed to the Recover hook
// when one is configured; the recovered state is committed and Fire returns true.
func (e *Engine[C]) Fire(ctx context.Context, event Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.current
	labels := e.labels()
	ctx = withObservabilityLabels(ctx, labels)

	ctx, span := startFireSpan(ctx, labels, eventName(event))
	defer span.End()

	firing := Firing{From: from, Event: event, Now: e.clock()}
	next := e.smCtx.Clone()

	transition, err := e.resolve(ctx, next, firing, true)
	if err != nil {
		e.reject(ctx, span, from, event, err)

		return false
	}

	start := time.Now()
	actionErr := runAction(ctx, transition.Action, next, firing)
	elapsed := time.Since(start)

	if transition.Action != nil {
		outcome := outcomeSuccess
		if actionErr != nil {
			outcome = outcomeError
		}

		actionDuration.WithLabelValues(sanitizeMachine(e.name), transition.Event, outcome).Observe(elapsed.Seconds())
	}

	var to State

	if actionErr != nil {
		actionErr = WrapTransitionError(from.Name(), transition.Event, fmt.Errorf("%w: %w", ErrActionFailed, actionErr))

		e.logger.ActionFailed(ctx, from.Name(), transition.Event, elapsed, actionErr)
		span.RecordError(actionErr)

		if e.recoverFn == nil {
			e.reject(ctx, span, from, event, actionErr)

			return false
		}

		next = e.smCtx.Clone()

		to = e.recoverFn(next, firing, actionErr)
		if to == nil {
			e.reject(ctx, span, from, event, actionErr)

			return false
		}
	} else {
		to = transition.destination(next, firing)
	}

	e.commit(ctx, from, to, event, next)
	span.SetStatus(codes.Ok, "committed")

	return true
}

// CanFire reports whether Fire would commit a transition for event, without
// mutating anything. Payloads are validated as Fire does, except for zero-value
// events, which ask whether the event kind is accepted at all.
func (e *Engine[C]) CanFire(ctx context.Context, event Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	firing := Firing{From: e.current, Event: event, Now: e.clock()}

	_, err := e.resolve(ctx, e.smCtx.Clone(), firing, !isZeroEvent(event))

	return err == nil
}

// Update applies fn to a copy of the context and commits it without changing
// state. Commit hooks run as for a transition.
func (e *Engine[C]) Update(ctx context.Context, fn func(smCtx C)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	labels := e.labels()
	ctx = withObservabilityLabels(ctx, labels)

	ctx, span := startUpdateSpan(ctx, labels)
	defer span.End()

	next := e.smCtx.Clone()
	fn(next)

	e.commit(ctx, e.current, e.current, nil, next)
}

// Replace overwrites both state and context, bypassing the table. It is meant
// for out-of-band resets; commit hooks run with a nil event.
func (e *Engine[C]) Replace(ctx context.Context, state State, smCtx C) {
	if state == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	labels := e.labels()
	ctx = withObservabilityLabels(ctx, labels)

	ctx, span := startUpdateSpan(ctx, labels)
	defer span.End()

	e.commit(ctx, e.current, state, nil, smCtx.Clone())
}

// resolve finds the transition for the firing and evaluates its guard.
func (e *Engine[C]) resolve(ctx context.Context, smCtx C, firing Firing, validate bool) (Transition[C], error) {
	from := firing.From.Name()

	if firing.Event == nil {
		return Transition[C]{}, WrapTransitionError(from, "", ErrNilEvent)
	}

	event := firing.Event.Name()

	if validator, ok := firing.Event.(Validator); ok && validate {
		err := validator.Validate()
		if err != nil {
			return Transition[C]{}, WrapTransitionError(from, event, fmt.Errorf("%w: %w", ErrInvalidEvent, err))
		}
	}

	transition, ok := e.table.Lookup(from, event)
	if !ok {
		return Transition[C]{}, WrapTransitionError(from, event, ErrTransitionNotFound)
	}

	if !transition.allows(ctx, smCtx, firing) {
		return Transition[C]{}, WrapTransitionError(from, event, ErrGuardRejected)
	}

	return transition, nil
}

func (e *Engine[C]) reject(ctx context.Context, span trace.Span, from State, event Event, err error) {
	rejectionsTotal.WithLabelValues(
		sanitizeMachine(e.name),
		from.Name(),
		eventName(event),
		rejectionReason(err),
	).Inc()

	span.SetStatus(codes.Unset, rejectionReason(err))
	e.logger.TransitionRejected(ctx, from.Name(), eventName(event), err)
}

func (e *Engine[C]) commit(ctx context.Context, from, to State, event Event, next C) {
	e.current = to
	e.smCtx = next

	if event != nil {
		transitionsTotal.WithLabelValues(
			sanitizeMachine(e.name),
			from.Name(),
			event.Name(),
			to.Name(),
			sanitizeInstance(e.labels().Instance),
		).Inc()

		e.logger.TransitionExecuted(ctx, from.Name(), event.Name(), to.Name())
	} else {
		e.logger.ContextUpdated(ctx, to.Name())
	}

	for _, hook := range e.hooks {
		hook(ctx, Commit[C]{
			From:    from,
			To:      to,
			Event:   event,
			Context: next.Clone(),
		})
	}
}

func (e *Engine[C]) labels() ObservabilityLabels {
	labels := ObservabilityLabels{
		Machine: e.name,
		State:   e.current.Name(),
	}

	if e.instance != nil {
		labels.Instance = e.instance(e.smCtx)
	}

	return labels
}

// runAction executes an action, converting a panic into an error.
func runAction[C any](ctx context.Context, action Action[C], smCtx C, firing Firing) (err error) {
	if action == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
	}()

	return action(ctx, smCtx, firing)
}

func eventName(event Event) string {
	if event == nil {
		return "<nil>"
	}

	return event.Name()
}

func isZeroEvent(event Event) bool {
	return event == nil || reflect.ValueOf(event).IsZero()
}
