package onboarding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/statemachine/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend down")

func TestCreateOrganization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.driveTo(t, onboarding.StateOrganizationSetup)
	h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": "  Acme  "})

	var requested string

	fired, err := h.machine.CreateOrganization(ctx, onboarding.OrganizationCreatorFunc(
		func(_ context.Context, name string) (onboarding.Organization, error) {
			requested = name

			return onboarding.Organization{ID: "org-42"}, nil
		}))
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "Acme", requested)

	assert.Equal(t, onboarding.StateProfileCompletion, h.machine.State().Name())
	assert.Equal(t, "org-42", h.machine.Context().OrganizationID)
	assert.True(t, h.machine.Context().CompletedSteps.Has(onboarding.StepOrganization))
}

func TestCreateOrganizationFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.driveTo(t, onboarding.StateOrganizationSetup)
	h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": "Acme"})

	fired, err := h.machine.CreateOrganization(ctx, onboarding.OrganizationCreatorFunc(
		func(context.Context, string) (onboarding.Organization, error) {
			return onboarding.Organization{}, errBackendDown
		}))
	require.ErrorIs(t, err, errBackendDown)
	assert.True(t, fired)

	state, ok := h.machine.State().(onboarding.ErrorState)
	require.True(t, ok)
	assert.Equal(t, "Could not create organization: backend down", state.Message)

	errs := h.machine.Context().Errors
	require.Len(t, errs, 1)
	assert.Equal(t, onboarding.CodeOrganizationCreateFailed, errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, onboarding.StateOrganizationSetup, errs[0].State)

	h.send(t, onboarding.Retry{})
	assert.Equal(t, onboarding.StateOrganizationSetup, h.machine.State().Name())
	assert.NotNil(t, h.drafts.GetDraft(ctx, onboarding.StepOrganization), "draft survives the failure")
}

func TestCreateOrganizationWithoutID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	h.driveTo(t, onboarding.StateOrganizationSetup)
	h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": "Acme"})

	fired, err := h.machine.CreateOrganization(ctx, onboarding.OrganizationCreatorFunc(
		func(context.Context, string) (onboarding.Organization, error) {
			return onboarding.Organization{Name: "Acme"}, nil
		}))
	require.ErrorIs(t, err, onboarding.ErrEmptyOrganizationID)
	assert.True(t, fired)

	assert.Equal(t, onboarding.StateError, h.machine.State().Name())
	assert.Empty(t, h.machine.Context().OrganizationID)
	assert.False(t, h.machine.Context().CompletedSteps.Has(onboarding.StepOrganization))

	errs := h.machine.Context().Errors
	require.Len(t, errs, 1)
	assert.Equal(t, onboarding.CodeOrganizationCreateFailed, errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
}

func TestCreateOrganizationCanceled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.driveTo(t, onboarding.StateOrganizationSetup)
	h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": "Acme"})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := h.machine.CreateOrganization(ctx, onboarding.OrganizationCreatorFunc(
			func(ctx context.Context, _ string) (onboarding.Organization, error) {
				close(started)
				<-ctx.Done()

				return onboarding.Organization{ID: "late"}, nil
			}))
		done <- err
	}()

	<-started
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, onboarding.StateOrganizationSetup, h.machine.State().Name())
	assert.Empty(t, h.machine.Context().OrganizationID)
	assert.Empty(t, h.machine.Context().Errors)
}

func TestCreateOrganizationPreconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	never := onboarding.OrganizationCreatorFunc(func(context.Context, string) (onboarding.Organization, error) {
		t.Error("creator must not be called")

		return onboarding.Organization{}, nil
	})

	t.Run("wrong state", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)

		fired, err := h.machine.CreateOrganization(ctx, never)
		require.ErrorIs(t, err, onboarding.ErrNotInOrganizationSetup)
		assert.False(t, fired)
	})

	t.Run("invalid draft", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.driveTo(t, onboarding.StateOrganizationSetup)
		h.saveDraft(t, onboarding.StepOrganization, map[string]any{"name": " "})

		fired, err := h.machine.CreateOrganization(ctx, never)
		require.ErrorIs(t, err, onboarding.ErrInvalidOrganizationDraft)
		assert.False(t, fired)
		assert.Equal(t, onboarding.StateOrganizationSetup, h.machine.State().Name())
	})

	t.Run("no draft store", func(t *testing.T) {
		t.Parallel()

		machine, err := onboarding.NewMachine(onboarding.WithSnapshot(onboarding.Snapshot{
			State:   onboarding.OrganizationSetupState{},
			Context: onboarding.NewContext(testUser, 4),
		}))
		require.NoError(t, err)

		fired, err := machine.CreateOrganization(ctx, never)
		require.ErrorIs(t, err, onboarding.ErrNoDraftStore)
		assert.False(t, fired)
	})
}

func TestNewTable(t *testing.T) {
	t.Parallel()

	table, err := onboarding.NewTable(onboarding.DefaultFlow(), nil, nil)
	require.NoError(t, err)

	_, ok := table.Lookup(onboarding.StateOrganizationSetup, onboarding.EventSkip)
	assert.True(t, ok)

	_, ok = table.Lookup(onboarding.StateDashboard, onboarding.EventError)
	assert.False(t, ok, "the terminal state cannot fail")

	_, ok = table.Lookup(onboarding.StateDashboard, onboarding.EventReset)
	assert.True(t, ok)

	result := validator.Validate(table, onboarding.StateStart, onboarding.StateDashboard)
	assert.True(t, result.Valid, result.Summary())
	assert.Empty(t, result.Warnings)

	_, err = onboarding.NewTable(&onboarding.Flow{}, nil, nil)
	require.ErrorIs(t, err, onboarding.ErrFlowNameRequired)
}

func TestNewTableWithoutPreferences(t *testing.T) {
	t.Parallel()

	flow, err := onboarding.LoadFlowFromBytes([]byte(`
name: no-preferences
steps:
  - name: organization
  - name: profile
  - name: preferences
    enabled: false
  - name: completion
`))
	require.NoError(t, err)

	table, err := onboarding.NewTable(flow, nil, nil)
	require.NoError(t, err)

	_, ok := table.Lookup(onboarding.StateProfileCompletion, onboarding.EventBack)
	assert.False(t, ok)

	result := validator.Validate(table, onboarding.StateStart, onboarding.StateDashboard)
	assert.True(t, result.Valid, result.Summary())
	assert.Equal(t, []string{"UNREACHABLE_STATE"}, result.WarningCodes())
	assert.Equal(t, onboarding.StatePreferences, result.Warnings[0].State)
}
