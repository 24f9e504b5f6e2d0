package onboarding

import (
	"context"
	"log/slog"

	"github.com/rockethooks/onboarding/statemachine"
	"github.com/rockethooks/onboarding/statemachine/validator"
)

type transition = statemachine.Transition[*Context]

// genericFailure is shown when an action breaks unexpectedly.
const genericFailure = "Something went wrong. Please try again."

// Error codes recorded by the machine itself.
const (
	CodeInternal                 = "internal"
	CodeOrganizationCreateFailed = "organization_create_failed"
)

// rules holds the guards and actions of one flow.
type rules struct {
	flow   *Flow
	drafts DraftStore
	logger *slog.Logger
}

// NewTable builds the transition table for a flow. drafts may be nil, in
// which case draft-gated transitions never fire.
func NewTable(flow *Flow, drafts DraftStore, logger *slog.Logger) (*statemachine.Table[*Context], error) {
	r, err := newRules(flow, drafts, logger)
	if err != nil {
		return nil, err
	}

	return r.table()
}

func newRules(flow *Flow, drafts DraftStore, logger *slog.Logger) (*rules, error) {
	err := flow.Validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &rules{flow: flow, drafts: drafts, logger: logger}, nil
}

// table builds and checks the table. Unreachable states are expected when a
// flow disables a step, so warnings are only logged.
func (r *rules) table() (*statemachine.Table[*Context], error) {
	table, err := statemachine.NewTable(r.transitions()...)
	if err != nil {
		return nil, err
	}

	result, err := validator.Check(table, StateStart, StateDashboard)
	if err != nil {
		return nil, err
	}

	for _, warning := range result.Warnings {
		r.logger.Debug("Flow table warning", "flow", r.flow.Name, "code", warning.Code, "state", warning.State)
	}

	return table, nil
}

func (r *rules) transitions() []transition {
	afterProfile := State(CompletionState{})
	if r.flow.Enabled(StepPreferences) {
		afterProfile = PreferencesState{}
	}

	table := []transition{
		{From: StateStart, Event: EventBegin, To: CheckOrganizationState{}, Action: r.begin},
		{
			From: StateCheckOrganization, Event: EventHasOrganization, To: ProfileCompletionState{},
			Guard: r.hasOrganization, Action: r.adoptOrganization,
		},
		{
			From: StateCheckOrganization, Event: EventNoOrganization, To: OrganizationSetupState{},
			Guard: r.noOrganization, Action: r.enter(StepOrganization), Target: r.organizationSetup,
		},
		{
			From: StateOrganizationSetup, Event: EventOrganizationCreated, To: ProfileCompletionState{},
			Guard: r.draftValid(StepOrganization), Action: r.organizationCreated,
		},
	}

	if r.flow.Skippable(StepOrganization) {
		for _, event := range []string{EventSkipOrganization, EventSkip} {
			table = append(table, transition{
				From: StateOrganizationSetup, Event: event, To: ProfileCompletionState{},
				Action: r.skip(StepOrganization, StepProfile),
			})
		}
	}

	table = append(table, transition{
		From: StateProfileCompletion, Event: EventProfileCompleted, To: afterProfile,
		Guard: r.draftValid(StepProfile), Action: r.complete(StepProfile, mustStepOf(afterProfile)),
	})

	if r.flow.AllowBack(StepProfile) {
		table = append(table, transition{
			From: StateProfileCompletion, Event: EventBack, To: OrganizationSetupState{},
			Guard: r.organizationNotSkipped, Action: r.enter(StepOrganization), Target: r.organizationSetup,
		})
	}

	if r.flow.Enabled(StepPreferences) {
		table = append(table, transition{
			From: StatePreferences, Event: EventPreferencesSaved, To: CompletionState{},
			Action: r.complete(StepPreferences, StepCompletion),
		})

		if r.flow.Skippable(StepPreferences) {
			for _, event := range []string{EventSkipPreferences, EventSkip} {
				table = append(table, transition{
					From: StatePreferences, Event: event, To: CompletionState{},
					Action: r.skip(StepPreferences, StepCompletion),
				})
			}
		}

		if r.flow.AllowBack(StepPreferences) {
			table = append(table, transition{
				From: StatePreferences, Event: EventBack, To: ProfileCompletionState{},
				Action: r.enter(StepProfile),
			})
		}
	}

	if r.flow.AllowBack(StepCompletion) {
		table = append(table, transition{
			From: StateCompletion, Event: EventBack, To: afterProfile,
			Action: r.backFromCompletion, Target: r.backFromCompletionTarget,
		})
	}

	table = append(table, transition{
		From: StateCompletion, Event: EventComplete, To: DashboardState{}, Action: r.finish,
	})

	for _, state := range activeStates {
		table = append(table, transition{
			From: state.Name(), Event: EventError, To: ErrorState{},
			Action: r.recordError, Target: r.errorState,
		})
	}

	table = append(table, transition{
		From: StateError, Event: EventRetry, To: StartState{},
		Action: r.touch, Target: r.retryTarget,
	})

	for _, state := range allStates {
		table = append(table, transition{
			From: state.Name(), Event: EventReset, To: StartState{}, Action: r.reset,
		})
	}

	return table
}

// Guards.

func (r *rules) hasOrganization(_ context.Context, c *Context, f statemachine.Firing) bool {
	if ev, ok := f.Event.(HasOrganization); ok && ev.OrganizationID != "" {
		return true
	}

	return c.OrganizationID != ""
}

func (r *rules) noOrganization(_ context.Context, c *Context, _ statemachine.Firing) bool {
	return c.OrganizationID == ""
}

func (r *rules) organizationNotSkipped(_ context.Context, c *Context, _ statemachine.Firing) bool {
	return !c.SkippedSteps.Has(StepOrganization)
}

func (r *rules) draftValid(step Step) statemachine.Guard[*Context] {
	return func(ctx context.Context, _ *Context, _ statemachine.Firing) bool {
		if r.drafts == nil {
			return false
		}

		return r.drafts.ValidateDraft(step, r.drafts.GetDraft(ctx, step))
	}
}

// Actions.

func (r *rules) touch(_ context.Context, c *Context, f statemachine.Firing) error {
	c.touch(f.Now)

	return nil
}

func (r *rules) begin(_ context.Context, c *Context, f statemachine.Firing) error {
	now := f.Now
	c.StartedAt = &now
	c.CurrentStep = 0
	c.touch(f.Now)

	return nil
}

func (r *rules) adoptOrganization(_ context.Context, c *Context, f statemachine.Firing) error {
	if ev, ok := f.Event.(HasOrganization); ok && ev.OrganizationID != "" {
		c.OrganizationID = ev.OrganizationID
	}

	c.SkipStep(StepOrganization)
	c.CurrentStep = r.flow.Ordinal(StepProfile)
	c.touch(f.Now)

	return nil
}

func (r *rules) enter(step Step) statemachine.Action[*Context] {
	return func(_ context.Context, c *Context, f statemachine.Firing) error {
		c.CurrentStep = r.flow.Ordinal(step)
		c.touch(f.Now)

		return nil
	}
}

func (r *rules) organizationCreated(ctx context.Context, c *Context, f statemachine.Firing) error {
	if ev, ok := f.Event.(OrganizationCreated); ok && ev.OrganizationID != "" {
		c.OrganizationID = ev.OrganizationID
	}

	return r.complete(StepOrganization, StepProfile)(ctx, c, f)
}

func (r *rules) complete(step, next Step) statemachine.Action[*Context] {
	return func(ctx context.Context, c *Context, f statemachine.Firing) error {
		c.CompleteStep(step)
		r.clearDraft(ctx, c, step)
		c.CurrentStep = r.flow.Ordinal(next)
		c.touch(f.Now)

		return nil
	}
}

// skip leaves the step's draft in place.
func (r *rules) skip(step, next Step) statemachine.Action[*Context] {
	return func(_ context.Context, c *Context, f statemachine.Firing) error {
		c.SkipStep(step)
		c.CurrentStep = r.flow.Ordinal(next)
		c.touch(f.Now)

		return nil
	}
}

func (r *rules) backFromCompletion(_ context.Context, c *Context, f statemachine.Firing) error {
	c.CurrentStep = r.flow.Ordinal(r.beforeCompletion(c))
	c.touch(f.Now)

	return nil
}

func (r *rules) finish(_ context.Context, c *Context, f statemachine.Firing) error {
	now := f.Now
	c.CompleteStep(StepCompletion)
	c.IsComplete = true
	c.CompletedAt = &now
	c.CurrentStep = r.flow.TotalSteps()
	c.touch(f.Now)

	return nil
}

func (r *rules) recordError(_ context.Context, c *Context, f statemachine.Firing) error {
	if ev, ok := f.Event.(Failed); ok && ev.Message != "" {
		c.appendError(ErrorEntry{
			Code:      ev.Code,
			Message:   ev.Message,
			Field:     ev.Field,
			Timestamp: f.Now,
			State:     f.From.Name(),
		})
	}

	c.touch(f.Now)

	return nil
}

func (r *rules) reset(ctx context.Context, c *Context, f statemachine.Firing) error {
	for _, step := range r.flow.EnabledSteps() {
		r.clearStoredDraft(ctx, step)
	}

	*c = *NewContext(c.UserID, r.flow.TotalSteps())
	c.touch(f.Now)

	return nil
}

// Targets.

func (r *rules) organizationSetup(c *Context, _ statemachine.Firing) statemachine.State {
	return OrganizationSetupState{Draft: CloneDraft(c.DraftData[StepOrganization])}
}

func (r *rules) backFromCompletionTarget(c *Context, _ statemachine.Firing) statemachine.State {
	if r.beforeCompletion(c) == StepPreferences {
		return PreferencesState{}
	}

	return ProfileCompletionState{}
}

func (r *rules) errorState(_ *Context, f statemachine.Firing) statemachine.State {
	ev, _ := f.Event.(Failed)

	return ErrorState{Message: ev.Message, Previous: previousOf(f.From)}
}

func (r *rules) retryTarget(_ *Context, f statemachine.Firing) statemachine.State {
	if es, ok := f.From.(ErrorState); ok && es.Previous != nil {
		return es.Previous
	}

	return StartState{}
}

// recoverFailure turns an action failure into an Error state with a generic message.
func (r *rules) recoverFailure(c *Context, f statemachine.Firing, err error) statemachine.State {
	r.logger.Error("Onboarding action failed", "from", f.From.Name(), "event", f.Event.Name(), "error", err)

	c.appendError(ErrorEntry{
		Code:      CodeInternal,
		Message:   genericFailure,
		Timestamp: f.Now,
		State:     f.From.Name(),
	})
	c.touch(f.Now)

	return ErrorState{Message: genericFailure, Previous: previousOf(f.From)}
}

// beforeCompletion is the step Back from Completion returns to. A skipped
// preferences step is passed over since it has nothing to restore.
func (r *rules) beforeCompletion(c *Context) Step {
	if r.flow.Enabled(StepPreferences) && !c.SkippedSteps.Has(StepPreferences) {
		return StepPreferences
	}

	return StepProfile
}

func (r *rules) clearDraft(ctx context.Context, c *Context, step Step) {
	delete(c.DraftData, step)
	r.clearStoredDraft(ctx, step)
}

func (r *rules) clearStoredDraft(ctx context.Context, step Step) {
	if r.drafts == nil {
		return
	}

	err := r.drafts.ClearStepDraft(ctx, step)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to clear draft", "step", step, "error", err)
	}
}

// previousOf unwraps nested errors so Retry never lands in Error again.
func previousOf(from statemachine.State) State {
	switch s := from.(type) {
	case ErrorState:
		if s.Previous != nil {
			return s.Previous
		}

		return StartState{}
	case State:
		return s
	default:
		return StartState{}
	}
}

func mustStepOf(state State) Step {
	step, ok := stepOf(state.Name())
	if !ok {
		panic("state " + state.Name() + " is not a step page")
	}

	return step
}
