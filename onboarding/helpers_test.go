package onboarding_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/rockethooks/onboarding/draft"
	"github.com/rockethooks/onboarding/kv"
	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/statemachine"
	smtesting "github.com/rockethooks/onboarding/statemachine/testing"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testUser = "user-1"

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type memoryPersister struct {
	mu        sync.Mutex
	snapshots []onboarding.Snapshot
	err       error
}

func (p *memoryPersister) Save(_ context.Context, snapshot onboarding.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshots = append(p.snapshots, snapshot)

	return p.err
}

func (p *memoryPersister) saved() []onboarding.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]onboarding.Snapshot(nil), p.snapshots...)
}

type harness struct {
	machine   *onboarding.Machine
	drafts    *draft.Store
	recorder  *smtesting.Recorder[*onboarding.Context]
	persister *memoryPersister
}

func newHarness(t *testing.T, opts ...onboarding.Option) *harness {
	t.Helper()

	h := &harness{
		drafts:    draft.NewStore(kv.NewMemory(), draft.WithLogger(slogt.New(t))),
		recorder:  smtesting.NewRecorder[*onboarding.Context](),
		persister: &memoryPersister{},
	}

	base := []onboarding.Option{
		onboarding.WithUserID(testUser),
		onboarding.WithDraftStore(h.drafts),
		onboarding.WithPersister(h.persister),
		onboarding.WithClock(smtesting.TickingClock(epoch, time.Second)),
		onboarding.WithLogger(slogt.New(t)),
		onboarding.WithCommitHook(h.recorder.Hook()),
	}

	machine, err := onboarding.NewMachine(append(base, opts...)...)
	require.NoError(t, err)

	h.machine = machine

	return h
}

func (h *harness) send(t *testing.T, event statemachine.Event) {
	t.Helper()

	from := h.machine.State().Name()
	require.True(t, h.machine.Send(context.Background(), event), "%s should fire from %s", event.Name(), from)
}

func (h *harness) saveDraft(t *testing.T, step onboarding.Step, data map[string]any) {
	t.Helper()

	require.NoError(t, h.machine.SaveDraft(context.Background(), step, data))
}

// driveTo follows the canonical path, completing every step, until target.
func (h *harness) driveTo(t *testing.T, target string) {
	t.Helper()

	for h.machine.State().Name() != target {
		switch h.machine.State().Name() {
		case onboarding.StateStart:
			h.send(t, onboarding.Begin{})
		case onboarding.StateCheckOrganization:
			h.send(t, onboarding.NoOrganization{})
		case onboarding.StateOrganizationSetup:
			h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": "Acme"})
			h.send(t, onboarding.OrganizationCreated{OrganizationID: "org-1", OrganizationName: "Acme"})
		case onboarding.StateProfileCompletion:
			h.saveDraft(t, onboarding.StepProfile, map[string]any{"firstName": "Ada", "role": "developer"})
			h.send(t, onboarding.ProfileCompleted{})
		case onboarding.StatePreferences:
			h.send(t, onboarding.PreferencesSaved{})
		case onboarding.StateCompletion:
			h.send(t, onboarding.Complete{})
		default:
			t.Fatalf("cannot drive from %s to %s", h.machine.State().Name(), target)
		}
	}
}

// dispatcher adapts a Machine to the scenario runner.
type dispatcher struct {
	*onboarding.Machine
}

func (d dispatcher) Fire(ctx context.Context, event statemachine.Event) bool {
	return d.Send(ctx, event)
}

func (d dispatcher) State() statemachine.State {
	return d.Machine.State()
}
