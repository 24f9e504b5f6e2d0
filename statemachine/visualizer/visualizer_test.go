package visualizer

import (
	"context"
	"testing"

	"github.com/rockethooks/onboarding/statemachine"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct{}

type node string

func (n node) Name() string { return string(n) }

func reviewTable(t *testing.T) *statemachine.Table[doc] {
	t.Helper()

	table, err := statemachine.NewTable(
		statemachine.Transition[doc]{
			From: "draft", Event: "submit", To: node("review"),
			Guard: func(context.Context, doc, statemachine.Firing) bool { return true },
		},
		statemachine.Transition[doc]{From: "review", Event: "approve", To: node("published")},
		statemachine.Transition[doc]{From: "review", Event: "reject", To: node("draft")},
		statemachine.Transition[doc]{From: "published", Event: "archive", To: node("archived")},
		statemachine.Transition[doc]{From: "review", Event: "reset", To: node("draft")},
	)
	require.NoError(t, err)

	return table
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGenerateMermaidGolden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "highlighted",
			opts: DefaultOptions().
				WithFinalStates("archived").
				WithHighlightPath([]string{"draft", "review"}),
		},
		{
			name: "bare",
			opts: DefaultOptions().
				WithFenced(false).
				WithShowEvents(false).
				WithShowGuards(false).
				WithDirection("LR").
				WithHideEvents("reset"),
		},
		{
			name: "dark",
			opts: DefaultOptions().
				WithFenced(false).
				WithTheme("dark").
				WithFinalStates("archived"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := GenerateMermaidWithOptions(reviewTable(t), "draft", tt.opts)
			require.NoError(t, err)

			golden(t).Assert(t, tt.name, []byte(got))
		})
	}
}

func TestGenerateMermaidDefaults(t *testing.T) {
	t.Parallel()

	got, err := GenerateMermaid(reviewTable(t), "draft")
	require.NoError(t, err)

	assert.Contains(t, got, "```mermaid\n")
	assert.Contains(t, got, "direction TB")
	assert.Contains(t, got, "draft --> review: submit [guarded]")
	assert.NotContains(t, got, "classDef", "nothing to style")
}

func TestGenerateMermaidErrors(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid[doc](nil, "draft")
	require.ErrorIs(t, err, ErrTableNil)

	_, err = GenerateMermaid(reviewTable(t), "")
	require.ErrorIs(t, err, ErrNoInitialState)

	_, err = GenerateMermaidWithOptions(reviewTable(t), "draft", DefaultOptions().WithTheme("neon"))
	require.ErrorIs(t, err, ErrUnknownTheme)

	_, err = GenerateMermaidWithOptions(reviewTable(t), "draft", DefaultOptions().WithDirection("TD"))
	require.ErrorIs(t, err, ErrBadDirection)
}
