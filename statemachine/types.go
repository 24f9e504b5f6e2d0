package statemachine

import (
	"context"
	"time"
)

// State is a node in the flow graph. Implementations may carry payload;
// the engine only matches on Name.
type State interface {
	Name() string
}

// Event is a message dispatched to the engine. The payload shape is owned by
// the concrete type, so callers get compile-time checking per event tag.
type Event interface {
	Name() string
}

// Validator is implemented by events whose payload can be structurally invalid.
type Validator interface {
	Validate() error
}

// Cloneable is the constraint on engine contexts. Clone must return a deep
// copy: actions run against the clone and the engine discards it on failure.
type Cloneable[C any] interface {
	Clone() C
}

// Firing describes the transition attempt handed to guards, actions and targets.
type Firing struct {
	From  State
	Event Event
	Now   time.Time
}

// Guard is a pure predicate gating a transition. It must not mutate smCtx.
type Guard[C any] func(ctx context.Context, smCtx C, f Firing) bool

// Action mutates the context when a transition fires.
type Action[C any] func(ctx context.Context, smCtx C, f Firing) error

// Target materializes the destination state, e.g. to attach payload derived
// from the context. It runs after the action, against the mutated context.
type Target[C any] func(smCtx C, f Firing) State

// Recover turns a failed action into a destination state. It receives a fresh
// clone of the pre-action context and may record the failure on it.
type Recover[C any] func(smCtx C, f Firing, err error) State

// CommitHook observes every committed change, in registration order,
// before the next event can be processed.
type CommitHook[C any] func(ctx context.Context, commit Commit[C])

// Commit is the payload delivered to commit hooks.
type Commit[C any] struct {
	From    State
	To      State
	Event   Event // nil for Update and Replace
	Context C
}
