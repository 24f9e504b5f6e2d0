package statemachine

import (
	"context"
	"fmt"
	"slices"
)

// Transition is a single (From, Event) -> To rule, optionally gated by a
// guard and paired with an action.
type Transition[C any] struct {
	From   string
	Event  string
	To     State
	Guard  Guard[C]
	Action Action[C]
	Target Target[C]
}

// Guarded reports whether the transition has a guard.
func (t Transition[C]) Guarded() bool {
	return t.Guard != nil
}

// allows evaluates the guard. A missing guard always allows.
func (t Transition[C]) allows(ctx context.Context, smCtx C, f Firing) bool {
	if t.Guard == nil {
		return true
	}

	return t.Guard(ctx, smCtx, f)
}

// destination resolves the state the transition commits to.
func (t Transition[C]) destination(smCtx C, f Firing) State {
	if t.Target != nil {
		if s := t.Target(smCtx, f); s != nil {
			return s
		}
	}

	return t.To
}

type transitionKey struct {
	from  string
	event string
}

// Table is an immutable, validated list of transitions.
type Table[C any] struct {
	transitions []Transition[C]
	index       map[transitionKey]int
}

// NewTable validates the transitions and builds a lookup table. Two rules
// sharing (From, Event) are a configuration error: the table refuses to build
// rather than silently picking one.
func NewTable[C any](transitions ...Transition[C]) (*Table[C], error) {
	table := &Table[C]{
		transitions: make([]Transition[C], 0, len(transitions)),
		index:       make(map[transitionKey]int, len(transitions)),
	}

	for i, transition := range transitions {
		if transition.From == "" {
			return nil, fmt.Errorf("transition %d: %w", i, ErrTransitionFromRequired)
		}

		if transition.Event == "" {
			return nil, fmt.Errorf("transition %d: %w", i, ErrTransitionEventRequired)
		}

		if transition.To == nil {
			return nil, fmt.Errorf("transition %d: %w", i, ErrTransitionToRequired)
		}

		key := transitionKey{from: transition.From, event: transition.Event}
		if prev, ok := table.index[key]; ok {
			return nil, fmt.Errorf("transition %d (%s --%s-->): %w with transition %d",
				i, transition.From, transition.Event, ErrDuplicateTransition, prev)
		}

		table.index[key] = len(table.transitions)
		table.transitions = append(table.transitions, transition)
	}

	return table, nil
}

// MustTable is NewTable for statically declared tables; it panics on error.
func MustTable[C any](transitions ...Transition[C]) *Table[C] {
	table, err := NewTable(transitions...)
	if err != nil {
		panic(err)
	}

	return table
}

// Lookup returns the transition for (from, event).
func (t *Table[C]) Lookup(from, event string) (Transition[C], bool) {
	idx, ok := t.index[transitionKey{from: from, event: event}]
	if !ok {
		return Transition[C]{}, false
	}

	return t.transitions[idx], true
}

// Transitions returns the rules in declaration order.
func (t *Table[C]) Transitions() []Transition[C] {
	return slices.Clone(t.transitions)
}

// Events returns the distinct events accepted from the given state, in
// declaration order.
func (t *Table[C]) Events(from string) []string {
	var events []string

	for _, transition := range t.transitions {
		if transition.From == from && !slices.Contains(events, transition.Event) {
			events = append(events, transition.Event)
		}
	}

	return events
}

// States returns every state name mentioned by the table, sources first,
// in declaration order.
func (t *Table[C]) States() []string {
	var names []string

	add := func(name string) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	for _, transition := range t.transitions {
		add(transition.From)
	}

	for _, transition := range t.transitions {
		add(transition.To.Name())
	}

	return names
}

// Reachable returns the states reachable from initial by following declared
// targets. Targets computed at runtime are not followed.
func (t *Table[C]) Reachable(initial string) map[string]bool {
	reachable := map[string]bool{initial: true}

	queue := []string{initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range t.transitions {
			to := transition.To.Name()
			if transition.From == current && !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	return reachable
}
