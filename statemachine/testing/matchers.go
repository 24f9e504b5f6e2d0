package testing

import (
	"errors"
	"fmt"
	"slices"
)

// Matcher errors.
var (
	ErrNoExecutionTrace     = errors.New("no execution trace available")
	ErrNoMatchersPassed     = errors.New("no matchers passed")
	ErrStateNotVisited      = errors.New("state was not visited")
	ErrTransitionNotTaken   = errors.New("transition was not taken")
	ErrPathMismatch         = errors.New("transition path mismatch")
	ErrFinalStateMismatch   = errors.New("final state mismatch")
	ErrUnexpectedTransition = errors.New("unexpected transition")
	ErrContextMismatch      = errors.New("context predicate failed")
)

// Matcher defines an assertion matcher over a recorded trace.
type Matcher[C any] interface {
	Match(recorder *Recorder[C]) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks if a state was visited.
func StateWasVisited[C any](name string) Matcher[C] {
	return &stateVisitedMatcher[C]{stateName: name}
}

type stateVisitedMatcher[C any] struct {
	stateName string
}

func (m *stateVisitedMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	for _, entry := range recorder.Transitions() {
		if entry.From == m.stateName || entry.To == m.stateName {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.stateName)
}

func (m *stateVisitedMatcher[C]) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.stateName)
}

// TransitionWasTaken creates a matcher that checks if a transition occurred.
// An empty event matches any event.
func TransitionWasTaken[C any](from, event, to string) Matcher[C] {
	return &transitionTakenMatcher[C]{from: from, event: event, to: to}
}

type transitionTakenMatcher[C any] struct {
	from  string
	event string
	to    string
}

func (m *transitionTakenMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	for _, entry := range recorder.Transitions() {
		if entry.From == m.from && entry.To == m.to && (m.event == "" || entry.Event == m.event) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' on '%s' to '%s'", ErrTransitionNotTaken, m.from, m.event, m.to)
}

func (m *transitionTakenMatcher[C]) Description() string {
	return fmt.Sprintf("transition from '%s' on '%s' to '%s' should be taken", m.from, m.event, m.to)
}

// PathEquals creates a matcher comparing the full transition path.
func PathEquals[C any](states ...string) Matcher[C] {
	return &pathMatcher[C]{states: states}
}

type pathMatcher[C any] struct {
	states []string
}

func (m *pathMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	path := recorder.Path()
	if !slices.Equal(path, m.states) {
		return false, fmt.Errorf("%w: got %v, expected %v", ErrPathMismatch, path, m.states)
	}

	return true, nil
}

func (m *pathMatcher[C]) Description() string {
	return fmt.Sprintf("transition path should be %v", m.states)
}

// LastContext creates a matcher applying a predicate to the most recent
// context snapshot.
func LastContext[C any](description string, predicate func(C) bool) Matcher[C] {
	return &lastContextMatcher[C]{description: description, predicate: predicate}
}

type lastContextMatcher[C any] struct {
	description string
	predicate   func(C) bool
}

func (m *lastContextMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	trace := recorder.Trace()
	if len(trace) == 0 {
		return false, ErrNoExecutionTrace
	}

	if !m.predicate(trace[len(trace)-1].Context) {
		return false, fmt.Errorf("%w: %s", ErrContextMismatch, m.description)
	}

	return true, nil
}

func (m *lastContextMatcher[C]) Description() string {
	return m.description
}

// All creates a matcher that requires all sub-matchers to pass.
func All[C any](matchers ...Matcher[C]) Matcher[C] {
	return &allMatcher[C]{matchers: matchers}
}

type allMatcher[C any] struct {
	matchers []Matcher[C]
}

func (m *allMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(recorder)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher[C]) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any[C any](matchers ...Matcher[C]) Matcher[C] {
	return &anyMatcher[C]{matchers: matchers}
}

type anyMatcher[C any] struct {
	matchers []Matcher[C]
}

func (m *anyMatcher[C]) Match(recorder *Recorder[C]) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(recorder)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher[C]) Description() string {
	return "at least one matcher should pass"
}
