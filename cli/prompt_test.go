package cli

import (
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Required(""), ErrRequired)
	require.ErrorIs(t, Required("   "), ErrRequired)
	require.NoError(t, Required("Acme"))
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, translate(promptui.ErrInterrupt), ErrInterrupted)
	require.ErrorIs(t, translate(promptui.ErrEOF), ErrInterrupted)

	other := errors.New("tty gone")
	assert.Equal(t, other, translate(other))
}
