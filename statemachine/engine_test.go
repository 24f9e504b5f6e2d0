package statemachine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTestJammed = errors.New("door jammed")

// doorCtx is a minimal engine context for testing.
type doorCtx struct {
	Opens  int
	Locked bool
	Log    []string
}

func (d *doorCtx) Clone() *doorCtx {
	clone := *d
	clone.Log = append([]string(nil), d.Log...)

	return &clone
}

type testState string

func (s testState) Name() string { return string(s) }

type testEvent string

func (e testEvent) Name() string { return string(e) }

// knock carries a payload that can be malformed.
type knock struct {
	Times int
}

func (knock) Name() string { return "knock" }

func (k knock) Validate() error {
	if k.Times <= 0 {
		return errors.New("times must be positive")
	}

	return nil
}

const (
	closed testState = "closed"
	opened testState = "opened"
	broken testState = "broken"
)

func doorTable(t *testing.T, extra ...Transition[*doorCtx]) *Table[*doorCtx] {
	t.Helper()

	transitions := []Transition[*doorCtx]{
		{
			From: "closed", Event: "open", To: opened,
			Guard: func(_ context.Context, d *doorCtx, _ Firing) bool { return !d.Locked },
			Action: func(_ context.Context, d *doorCtx, f Firing) error {
				d.Opens++
				d.Log = append(d.Log, "open@"+f.From.Name())

				return nil
			},
		},
		{From: "opened", Event: "close", To: closed},
		{
			From: "closed", Event: "knock", To: closed,
			Action: func(_ context.Context, d *doorCtx, f Firing) error {
				k, _ := f.Event.(knock)
				for range k.Times {
					d.Log = append(d.Log, "knock")
				}

				return nil
			},
		},
	}

	table, err := NewTable(append(transitions, extra...)...)
	require.NoError(t, err)

	return table
}

func newDoor(t *testing.T, table *Table[*doorCtx], opts ...Option[*doorCtx]) *Engine[*doorCtx] {
	t.Helper()

	opts = append([]Option[*doorCtx]{
		WithName[*doorCtx]("door"),
		WithLogger[*doorCtx](NewSlogLogger(slogt.New(t))),
	}, opts...)

	engine, err := NewEngine(table, State(closed), &doorCtx{}, opts...)
	require.NoError(t, err)

	return engine
}

func TestEngineFire(t *testing.T) {
	t.Parallel()

	engine := newDoor(t, doorTable(t))
	ctx := context.Background()

	require.True(t, engine.Fire(ctx, testEvent("open")))
	assert.Equal(t, "opened", engine.State().Name())
	assert.Equal(t, 1, engine.Context().Opens)
	assert.Equal(t, []string{"open@closed"}, engine.Context().Log)

	require.True(t, engine.Fire(ctx, testEvent("close")))
	assert.Equal(t, "closed", engine.State().Name())
}

func TestEngineUnknownEventIsNoop(t *testing.T) {
	t.Parallel()

	engine := newDoor(t, doorTable(t))

	assert.False(t, engine.Fire(context.Background(), testEvent("close")))
	assert.False(t, engine.Fire(context.Background(), nil))
	assert.Equal(t, "closed", engine.State().Name())
	assert.Equal(t, 0, engine.Context().Opens)
}

func TestEngineGuardRejects(t *testing.T) {
	t.Parallel()

	engine := newDoor(t, doorTable(t))
	ctx := context.Background()

	engine.Update(ctx, func(d *doorCtx) { d.Locked = true })

	assert.False(t, engine.CanFire(ctx, testEvent("open")))
	assert.False(t, engine.Fire(ctx, testEvent("open")))
	assert.Equal(t, "closed", engine.State().Name())
	assert.Equal(t, 0, engine.Context().Opens)
}

func TestEngineCanFireNeverMutates(t *testing.T) {
	t.Parallel()

	table := doorTable(t, Transition[*doorCtx]{
		From: "closed", Event: "peek", To: closed,
		Guard: func(_ context.Context, d *doorCtx, _ Firing) bool {
			// A misbehaving guard must not be able to corrupt engine state.
			d.Opens = 99

			return true
		},
	})
	engine := newDoor(t, table)

	for range 5 {
		assert.True(t, engine.CanFire(context.Background(), testEvent("peek")))
	}

	assert.Equal(t, 0, engine.Context().Opens)
	assert.Equal(t, "closed", engine.State().Name())
}

func TestEngineActionErrorDiscardsPartialMutation(t *testing.T) {
	t.Parallel()

	table := doorTable(t, Transition[*doorCtx]{
		From: "closed", Event: "kick", To: opened,
		Action: func(_ context.Context, d *doorCtx, _ Firing) error {
			d.Opens = 42

			return errTestJammed
		},
	})
	engine := newDoor(t, table)

	assert.False(t, engine.Fire(context.Background(), testEvent("kick")))
	assert.Equal(t, "closed", engine.State().Name())
	assert.Equal(t, 0, engine.Context().Opens)
}

func TestEngineRecoverConvertsFailures(t *testing.T) {
	t.Parallel()

	var recovered []error

	table := doorTable(t,
		Transition[*doorCtx]{
			From: "closed", Event: "kick", To: opened,
			Action: func(context.Context, *doorCtx, Firing) error { return errTestJammed },
		},
		Transition[*doorCtx]{
			From: "opened", Event: "slam", To: closed,
			Action: func(context.Context, *doorCtx, Firing) error { panic("hinge snapped") },
		},
	)

	engine := newDoor(t, table, WithRecover[*doorCtx](func(d *doorCtx, f Firing, err error) State {
		recovered = append(recovered, err)
		d.Log = append(d.Log, "broken by "+f.Event.Name())

		return broken
	}))
	ctx := context.Background()

	require.True(t, engine.Fire(ctx, testEvent("kick")))
	assert.Equal(t, "broken", engine.State().Name())
	require.Len(t, recovered, 1)
	require.ErrorIs(t, recovered[0], ErrActionFailed)
	require.ErrorIs(t, recovered[0], errTestJammed)

	var transitionErr *TransitionError
	require.ErrorAs(t, recovered[0], &transitionErr)
	assert.Equal(t, "closed", transitionErr.From)
	assert.Equal(t, "kick", transitionErr.Event)

	panicking := newDoor(t, table, WithRecover[*doorCtx](func(d *doorCtx, _ Firing, err error) State {
		recovered = append(recovered, err)

		return broken
	}))
	require.True(t, panicking.Fire(ctx, testEvent("open")))
	require.True(t, panicking.Fire(ctx, testEvent("slam")))
	assert.Equal(t, "broken", panicking.State().Name())
	require.ErrorIs(t, recovered[1], ErrActionPanicked)
	// the failed action's context changes are discarded, earlier commits are kept
	assert.Equal(t, 1, panicking.Context().Opens)
}

func TestEngineTargetOverridesTo(t *testing.T) {
	t.Parallel()

	table := doorTable(t, Transition[*doorCtx]{
		From: "closed", Event: "force", To: opened,
		Target: func(d *doorCtx, _ Firing) State {
			if d.Locked {
				return broken
			}

			return nil
		},
	})
	engine := newDoor(t, table)
	ctx := context.Background()

	engine.Update(ctx, func(d *doorCtx) { d.Locked = true })
	require.True(t, engine.Fire(ctx, testEvent("force")))
	assert.Equal(t, "broken", engine.State().Name())

	unlocked := newDoor(t, table)
	require.True(t, unlocked.Fire(ctx, testEvent("force")))
	assert.Equal(t, "opened", unlocked.State().Name())
}

func TestEngineRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	engine := newDoor(t, doorTable(t))
	ctx := context.Background()

	assert.False(t, engine.Fire(ctx, knock{Times: 0}))
	assert.Empty(t, engine.Context().Log)

	// zero-value events only ask whether the kind is accepted
	assert.True(t, engine.CanFire(ctx, knock{}))
	assert.False(t, engine.CanFire(ctx, knock{Times: -1}))
	assert.True(t, engine.CanFire(ctx, knock{Times: 1}))

	require.True(t, engine.Fire(ctx, knock{Times: 2}))
	assert.Equal(t, []string{"knock", "knock"}, engine.Context().Log)
}

func TestEngineCommitHooks(t *testing.T) {
	t.Parallel()

	var seen []string

	record := func(prefix string) CommitHook[*doorCtx] {
		return func(_ context.Context, commit Commit[*doorCtx]) {
			event := "update"
			if commit.Event != nil {
				event = commit.Event.Name()
			}

			seen = append(seen, prefix+":"+commit.From.Name()+">"+commit.To.Name()+":"+event)
		}
	}

	engine := newDoor(t, doorTable(t),
		WithCommitHook(record("a")),
		WithCommitHook(record("b")),
	)
	ctx := context.Background()

	require.True(t, engine.Fire(ctx, testEvent("open")))
	assert.False(t, engine.Fire(ctx, testEvent("open")))
	engine.Update(ctx, func(d *doorCtx) { d.Locked = true })

	assert.Equal(t, []string{
		"a:closed>opened:open",
		"b:closed>opened:open",
		"a:opened>opened:update",
		"b:opened>opened:update",
	}, seen)
}

func TestEngineReplace(t *testing.T) {
	t.Parallel()

	var commits []Commit[*doorCtx]

	engine := newDoor(t, doorTable(t), WithCommitHook(func(_ context.Context, c Commit[*doorCtx]) {
		commits = append(commits, c)
	}))
	ctx := context.Background()

	require.True(t, engine.Fire(ctx, testEvent("open")))

	engine.Replace(ctx, broken, &doorCtx{Locked: true})
	assert.Equal(t, "broken", engine.State().Name())
	assert.True(t, engine.Context().Locked)
	assert.Equal(t, 0, engine.Context().Opens)

	require.Len(t, commits, 2)
	assert.Nil(t, commits[1].Event)
	assert.Equal(t, "opened", commits[1].From.Name())

	engine.Replace(ctx, nil, &doorCtx{})
	assert.Equal(t, "broken", engine.State().Name(), "nil state is ignored")
}

func TestEngineClockFeedsFiring(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var got time.Time

	table := doorTable(t, Transition[*doorCtx]{
		From: "closed", Event: "stamp", To: closed,
		Action: func(_ context.Context, _ *doorCtx, f Firing) error {
			got = f.Now

			return nil
		},
	})
	engine := newDoor(t, table, WithClock[*doorCtx](func() time.Time { return fixed }))

	require.True(t, engine.Fire(context.Background(), testEvent("stamp")))
	assert.Equal(t, fixed, got)
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	_, err := NewEngine[*doorCtx](nil, closed, &doorCtx{})
	require.ErrorIs(t, err, ErrTableRequired)

	_, err = NewEngine(doorTable(t), nil, &doorCtx{})
	require.ErrorIs(t, err, ErrInitialStateRequired)
}
