package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/rockethooks/onboarding/statemachine"
)

// DefaultMachineName labels logs, metrics and spans.
const DefaultMachineName = "onboarding"

// ErrNoDraftStore is returned by draft operations when no store is configured.
var ErrNoDraftStore = errors.New("no draft store configured")

// Machine is the onboarding flow controller. It owns its state and context;
// every change is serialized and persisted before the next one starts.
type Machine struct {
	engine    *statemachine.Engine[*Context]
	rules     *rules
	persister Persister
	clock     func() time.Time
	logger    *slog.Logger
}

type options struct {
	name      string
	flow      *Flow
	drafts    DraftStore
	persister Persister
	snapshot  *Snapshot
	userID    string
	clock     func() time.Time
	logger    *slog.Logger
	hooks     []statemachine.CommitHook[*Context]
}

// Option configures a Machine.
type Option func(*options)

// WithFlow sets the flow shape. Defaults to DefaultFlow.
func WithFlow(flow *Flow) Option {
	return func(o *options) {
		o.flow = flow
	}
}

// WithDraftStore sets the draft store consulted by step guards.
func WithDraftStore(drafts DraftStore) Option {
	return func(o *options) {
		o.drafts = drafts
	}
}

// WithPersister saves a snapshot after every committed change.
func WithPersister(persister Persister) Option {
	return func(o *options) {
		o.persister = persister
	}
}

// WithSnapshot rehydrates the machine from a previously persisted snapshot.
func WithSnapshot(snapshot Snapshot) Option {
	return func(o *options) {
		o.snapshot = &snapshot
	}
}

// WithUserID sets the signed-in user.
func WithUserID(userID string) Option {
	return func(o *options) {
		o.userID = userID
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName sets the machine name used in observability labels.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithCommitHook observes every committed change after it is persisted.
func WithCommitHook(hook statemachine.CommitHook[*Context]) Option {
	return func(o *options) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// NewMachine builds a machine at Start, or at the given snapshot.
//
// A snapshot belonging to a different user than WithUserID is ignored. A
// snapshot taken under a flow with a different step count is clamped to the
// current flow.
func NewMachine(opts ...Option) (*Machine, error) {
	o := &options{
		name:   DefaultMachineName,
		clock:  time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.flow == nil {
		o.flow = DefaultFlow()
	}

	r, err := newRules(o.flow, o.drafts, o.logger)
	if err != nil {
		return nil, err
	}

	table, err := r.table()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		rules:     r,
		persister: o.persister,
		clock:     o.clock,
		logger:    o.logger,
	}

	initial, smCtx := m.initial(o)

	engineOpts := []statemachine.Option[*Context]{
		statemachine.WithName[*Context](o.name),
		statemachine.WithClock[*Context](o.clock),
		statemachine.WithLogger[*Context](statemachine.NewSlogLogger(o.logger)),
		statemachine.WithRecover[*Context](r.recoverFailure),
		statemachine.WithInstance[*Context](func(c *Context) string { return c.UserID }),
		statemachine.WithCommitHook[*Context](m.persist),
	}

	for _, hook := range o.hooks {
		engineOpts = append(engineOpts, statemachine.WithCommitHook(hook))
	}

	m.engine, err = statemachine.NewEngine(table, initial, smCtx, engineOpts...)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Machine) initial(o *options) (State, *Context) {
	total := o.flow.TotalSteps()
	fresh := NewContext(o.userID, total)

	snap := o.snapshot
	if snap == nil || snap.State == nil || snap.Context == nil {
		return StartState{}, fresh
	}

	if o.userID != "" && snap.Context.UserID != "" && snap.Context.UserID != o.userID {
		m.logger.Info("Ignoring onboarding snapshot of another user")

		return StartState{}, fresh
	}

	smCtx := snap.Context.Clone()
	if smCtx.UserID == "" {
		smCtx.UserID = o.userID
	}

	smCtx.TotalSteps = total
	smCtx.CurrentStep = min(max(smCtx.CurrentStep, 0), total)

	state, ok := m.settle(snap.State, smCtx, o.flow)
	if !ok {
		m.logger.Info("Discarding onboarding snapshot past the end of the flow", "state", snap.State.Name())

		return StartState{}, fresh
	}

	return state, smCtx
}

// settle moves a restored page whose step the flow no longer enables onto the
// next enabled step. It reports false when no later step is enabled.
func (m *Machine) settle(state State, smCtx *Context, flow *Flow) (State, bool) {
	if es, ok := state.(ErrorState); ok {
		if es.Previous == nil {
			return es, true
		}

		previous, ok := m.settle(es.Previous, smCtx, flow)
		es.Previous = previous

		return es, ok
	}

	step, ok := stepOf(state.Name())
	if !ok || flow.Enabled(step) {
		return state, true
	}

	position := slices.Index(canonicalSteps, step)
	for _, next := range canonicalSteps[position+1:] {
		if flow.Enabled(next) {
			m.logger.Info("Restored step is disabled", "step", step, "resumeAt", next)
			smCtx.CurrentStep = flow.Ordinal(next)

			return pageOf(next), true
		}
	}

	return nil, false
}

// persist is the commit hook writing snapshots. Failures are logged and
// never reach the caller.
func (m *Machine) persist(ctx context.Context, commit statemachine.Commit[*Context]) {
	if m.persister == nil {
		return
	}

	state, ok := commit.To.(State)
	if !ok {
		return
	}

	err := m.persister.Save(ctx, Snapshot{State: state, Context: commit.Context})
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to persist onboarding state", "state", state.Name(), "error", err)
	}
}

// Send dispatches an event and reports whether a transition fired.
func (m *Machine) Send(ctx context.Context, event statemachine.Event) bool {
	return m.engine.Fire(ctx, event)
}

// CanTransition reports whether Send would fire, without side effects.
func (m *Machine) CanTransition(ctx context.Context, event statemachine.Event) bool {
	return m.engine.CanFire(ctx, event)
}

// GoBack dispatches Back.
func (m *Machine) GoBack(ctx context.Context) bool {
	return m.Send(ctx, Back{})
}

// Skip dispatches the skip event of the current step.
func (m *Machine) Skip(ctx context.Context) bool {
	return m.Send(ctx, skipEvent(m.State()))
}

// Reset restarts the flow. The user stays signed in.
func (m *Machine) Reset(ctx context.Context) bool {
	return m.Send(ctx, Reset{})
}

// Logout tears the flow down completely, forgetting the user and their drafts.
func (m *Machine) Logout(ctx context.Context) {
	for _, step := range m.rules.flow.EnabledSteps() {
		m.rules.clearStoredDraft(ctx, step)
	}

	fresh := NewContext("", m.rules.flow.TotalSteps())
	fresh.touch(m.clock())

	m.engine.Replace(ctx, StartState{}, fresh)
}

// UpdateContext applies fn to the context and persists the result.
func (m *Machine) UpdateContext(ctx context.Context, fn func(c *Context)) {
	m.engine.Update(ctx, func(c *Context) {
		fn(c)
		c.touch(m.clock())
	})
}

// SaveDraft stores form data for a step and mirrors it into the context.
func (m *Machine) SaveDraft(ctx context.Context, step Step, data map[string]any) error {
	if m.rules.drafts == nil {
		return ErrNoDraftStore
	}

	data, err := normalizeDraft(data)
	if err != nil {
		return err
	}

	err = m.rules.drafts.SaveDraft(ctx, step, data)
	if err != nil {
		return err
	}

	m.UpdateContext(ctx, func(c *Context) {
		if c.DraftData == nil {
			c.DraftData = map[Step]map[string]any{}
		}

		c.DraftData[step] = CloneDraft(data)
	})

	return nil
}

// ClearErrors dismisses the error log.
func (m *Machine) ClearErrors(ctx context.Context) {
	m.UpdateContext(ctx, (*Context).ClearErrors)
}

// State returns the current state.
func (m *Machine) State() State {
	state, _ := m.engine.State().(State)

	return state
}

// Context returns a copy of the context.
func (m *Machine) Context() *Context {
	return m.engine.Context()
}

// Snapshot returns state and context read atomically.
func (m *Machine) Snapshot() Snapshot {
	state, smCtx := m.engine.Snapshot()
	s, _ := state.(State)

	return Snapshot{State: s, Context: smCtx}
}

// Flow returns the flow the machine was built with.
func (m *Machine) Flow() *Flow {
	return m.rules.flow
}

// Table returns the transition table.
func (m *Machine) Table() *statemachine.Table[*Context] {
	return m.engine.Table()
}

func skipEvent(state State) statemachine.Event {
	switch state.(type) {
	case OrganizationSetupState:
		return SkipOrganization{}
	case PreferencesState:
		return SkipPreferences{}
	default:
		return Skip{}
	}
}
