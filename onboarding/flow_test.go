package onboarding

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFlow(t *testing.T) {
	t.Parallel()

	flow := DefaultFlow()

	assert.Equal(t, "onboarding", flow.Name)
	assert.Equal(t, []Step{StepOrganization, StepProfile, StepPreferences, StepCompletion}, flow.EnabledSteps())
	assert.Equal(t, 4, flow.TotalSteps())
	assert.Equal(t, 1, flow.Ordinal(StepOrganization))
	assert.Equal(t, 4, flow.Ordinal(StepCompletion))
	assert.True(t, flow.Skippable(StepOrganization))
	assert.True(t, flow.Skippable(StepPreferences))
	assert.False(t, flow.Skippable(StepProfile))
	assert.True(t, flow.AllowBack(StepProfile))
}

func TestLoadFlowFromBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "preferences disabled",
			yaml: `
name: short
steps:
  - name: organization
  - name: profile
  - name: preferences
    enabled: false
  - name: completion
`,
		},
		{
			name:    "missing name",
			yaml:    "steps: []",
			wantErr: ErrFlowNameRequired,
		},
		{
			name: "unknown step",
			yaml: `
name: x
steps:
  - name: account
`,
			wantErr: ErrUnknownStep,
		},
		{
			name: "duplicate step",
			yaml: `
name: x
steps:
  - name: organization
  - name: organization
`,
			wantErr: ErrDuplicateStep,
		},
		{
			name: "out of order",
			yaml: `
name: x
steps:
  - name: profile
  - name: organization
  - name: completion
`,
			wantErr: ErrStepOrder,
		},
		{
			name: "profile disabled",
			yaml: `
name: x
steps:
  - name: organization
  - name: profile
    enabled: false
  - name: completion
`,
			wantErr: ErrRequiredStep,
		},
		{
			name: "profile skippable",
			yaml: `
name: x
steps:
  - name: organization
  - name: profile
    skippable: true
  - name: completion
`,
			wantErr: ErrStepNotSkippable,
		},
		{
			name: "completion missing",
			yaml: `
name: x
steps:
  - name: organization
  - name: profile
`,
			wantErr: ErrMissingStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flow, err := LoadFlowFromBytes([]byte(tt.yaml))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, 3, flow.TotalSteps())
			assert.Equal(t, 3, flow.Ordinal(StepCompletion))
			assert.Equal(t, 0, flow.Ordinal(StepPreferences))
			assert.False(t, flow.Enabled(StepPreferences))
		})
	}
}

func TestLoadFlowFromBytesRejectsBadYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadFlowFromBytes([]byte("name: [unterminated"))
	require.Error(t, err)
}

func TestLoadFlowSources(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"flows/default.yaml": {Data: defaultFlowYAML}}

	flow, err := LoadFlowFromFS(fsys, "flows/default.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultFlow(), flow)

	_, err = LoadFlowFromFS(fsys, "flows/missing.yaml")
	require.ErrorIs(t, err, ErrFlowUnreadable)

	_, err = LoadFlow(t.TempDir() + "/missing.yaml")
	require.ErrorIs(t, err, ErrFlowUnreadable)
}
