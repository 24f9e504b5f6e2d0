package testing

import (
	"sync"
	"time"
)

// Name is a payload-free state or event, handy for small test tables.
type Name string

// Name implements statemachine.State and statemachine.Event.
func (n Name) Name() string { return string(n) }

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TickingClock returns a clock starting at start that advances by step on
// every call.
func TickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex

	next := start

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now := next
		next = next.Add(step)

		return now
	}
}
