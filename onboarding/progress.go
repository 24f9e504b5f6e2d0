package onboarding

import (
	"context"
	"math"

	"github.com/rockethooks/onboarding/statemachine"
)

// Progress is the derived view the wizard chrome renders.
type Progress struct {
	CurrentStep    int
	TotalSteps     int
	Percentage     int
	CompletedSteps []Step
	SkippedSteps   []Step
	CanGoBack      bool
	CanSkip        bool
	CanProceed     bool
}

// nextEvents is the natural forward event per state. CheckOrganization
// proceeds on whichever lookup result applies.
var nextEvents = map[string][]statemachine.Event{
	StateStart:             {Begin{}},
	StateCheckOrganization: {HasOrganization{}, NoOrganization{}},
	StateOrganizationSetup: {OrganizationCreated{}},
	StateProfileCompletion: {ProfileCompleted{}},
	StatePreferences:       {PreferencesSaved{}},
	StateCompletion:        {Complete{}},
	StateError:             {Retry{}},
}

// Progress computes progress and capability flags for the current state.
func (m *Machine) Progress(ctx context.Context) Progress {
	state, smCtx := m.engine.Snapshot()

	progress := Progress{
		CurrentStep:    smCtx.CurrentStep,
		TotalSteps:     smCtx.TotalSteps,
		Percentage:     percentage(smCtx.CurrentStep, smCtx.TotalSteps),
		CompletedSteps: smCtx.CompletedSteps.Sorted(),
		SkippedSteps:   smCtx.SkippedSteps.Sorted(),
		CanGoBack:      m.CanTransition(ctx, Back{}),
	}

	if s, ok := state.(State); ok {
		progress.CanSkip = m.CanTransition(ctx, skipEvent(s))
	}

	for _, event := range nextEvents[state.Name()] {
		if m.CanTransition(ctx, event) {
			progress.CanProceed = true

			break
		}
	}

	return progress
}

func percentage(step, total int) int {
	if total <= 0 {
		return 0
	}

	return int(math.Round(float64(step) / float64(total) * 100))
}
