package testing

import (
	"context"
	"testing"

	"github.com/rockethooks/onboarding/statemachine"
	"github.com/stretchr/testify/require"
)

// Step is one event of a scenario with its expected outcome.
type Step struct {
	Event statemachine.Event
	Fires bool
	State string // expected state after the step, empty to skip the check
}

// Fires is a step that must commit and land in state.
func Fires(event statemachine.Event, state string) Step {
	return Step{Event: event, Fires: true, State: state}
}

// Rejects is a step that must be a no-op.
func Rejects(event statemachine.Event) Step {
	return Step{Event: event}
}

// Dispatcher is the surface a scenario drives. Engine and domain machines
// wrapping one both satisfy it.
type Dispatcher interface {
	Fire(ctx context.Context, event statemachine.Event) bool
	State() statemachine.State
}

// TestScenario is a scripted sequence of events with expectations.
type TestScenario[C any] struct {
	Name     string
	Steps    []Step
	Matchers []Matcher[C]
}

// RunScenario executes a scenario against a fresh dispatcher from setup.
// setup must route commits into the returned recorder.
func RunScenario[C any](
	t *testing.T,
	scenario TestScenario[C],
	setup func(t *testing.T) (Dispatcher, *Recorder[C]),
) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		dispatcher, recorder := setup(t)
		ctx := context.Background()

		for i, step := range scenario.Steps {
			before := dispatcher.State().Name()
			fired := dispatcher.Fire(ctx, step.Event)

			require.Equal(t, step.Fires, fired, "step %d: '%s' from '%s'", i, step.Event.Name(), before)

			if step.State != "" {
				require.Equal(t, step.State, dispatcher.State().Name(), "step %d: state after '%s'", i, step.Event.Name())
			}

			if !step.Fires {
				require.Equal(t, before, dispatcher.State().Name(), "step %d: rejected event changed state", i)
			}
		}

		for _, matcher := range scenario.Matchers {
			matched, err := matcher.Match(recorder)
			require.NoError(t, err, matcher.Description())
			require.True(t, matched, matcher.Description())
		}
	})
}
