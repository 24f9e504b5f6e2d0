package onboarding

import "github.com/rockethooks/onboarding/statemachine"

// State names.
const (
	StateStart             = "Start"
	StateCheckOrganization = "CheckOrganization"
	StateOrganizationSetup = "OrganizationSetup"
	StateProfileCompletion = "ProfileCompletion"
	StatePreferences       = "Preferences"
	StateCompletion        = "Completion"
	StateDashboard         = "Dashboard"
	StateError             = "Error"
)

// State is the onboarding flow position. The set of variants is closed.
type State interface {
	statemachine.State
	isState()
}

type (
	// StartState is the initial state before the user begins.
	StartState struct{}

	// CheckOrganizationState waits for the organization lookup.
	CheckOrganizationState struct{}

	// OrganizationSetupState shows the organization form, prefilled from Draft.
	OrganizationSetupState struct {
		Draft map[string]any
	}

	// ProfileCompletionState shows the profile form.
	ProfileCompletionState struct{}

	// PreferencesState shows the optional preferences form.
	PreferencesState struct{}

	// CompletionState is the summary page.
	CompletionState struct{}

	// DashboardState is terminal.
	DashboardState struct{}

	// ErrorState holds a domain failure and where it happened.
	ErrorState struct {
		Message  string
		Previous State
	}
)

func (StartState) Name() string             { return StateStart }
func (CheckOrganizationState) Name() string { return StateCheckOrganization }
func (OrganizationSetupState) Name() string { return StateOrganizationSetup }
func (ProfileCompletionState) Name() string { return StateProfileCompletion }
func (PreferencesState) Name() string       { return StatePreferences }
func (CompletionState) Name() string        { return StateCompletion }
func (DashboardState) Name() string         { return StateDashboard }
func (ErrorState) Name() string             { return StateError }

func (StartState) isState()             {}
func (CheckOrganizationState) isState() {}
func (OrganizationSetupState) isState() {}
func (ProfileCompletionState) isState() {}
func (PreferencesState) isState()       {}
func (CompletionState) isState()        {}
func (DashboardState) isState()         {}
func (ErrorState) isState()             {}

// NewState returns the payload-free variant for a name.
func NewState(name string) (State, bool) {
	switch name {
	case StateStart:
		return StartState{}, true
	case StateCheckOrganization:
		return CheckOrganizationState{}, true
	case StateOrganizationSetup:
		return OrganizationSetupState{}, true
	case StateProfileCompletion:
		return ProfileCompletionState{}, true
	case StatePreferences:
		return PreferencesState{}, true
	case StateCompletion:
		return CompletionState{}, true
	case StateDashboard:
		return DashboardState{}, true
	case StateError:
		return ErrorState{}, true
	default:
		return nil, false
	}
}

// IsTerminal reports whether the flow is finished.
func IsTerminal(state State) bool {
	_, ok := state.(DashboardState)

	return ok
}

// stepOf maps a wizard page to its step. The second result is false for
// states that are not a step page.
func stepOf(name string) (Step, bool) {
	switch name {
	case StateOrganizationSetup:
		return StepOrganization, true
	case StateProfileCompletion:
		return StepProfile, true
	case StatePreferences:
		return StepPreferences, true
	case StateCompletion:
		return StepCompletion, true
	default:
		return "", false
	}
}

// pageOf is the inverse of stepOf.
func pageOf(step Step) State {
	switch step {
	case StepOrganization:
		return OrganizationSetupState{}
	case StepProfile:
		return ProfileCompletionState{}
	case StepPreferences:
		return PreferencesState{}
	default:
		return CompletionState{}
	}
}

// activeStates are the states an Error event can be raised from.
var activeStates = []State{
	CheckOrganizationState{},
	OrganizationSetupState{},
	ProfileCompletionState{},
	PreferencesState{},
	CompletionState{},
}

var allStates = []State{
	StartState{},
	CheckOrganizationState{},
	OrganizationSetupState{},
	ProfileCompletionState{},
	PreferencesState{},
	CompletionState{},
	DashboardState{},
	ErrorState{},
}
