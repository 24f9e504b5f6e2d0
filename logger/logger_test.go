package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"testing"

	"github.com/rockethooks/onboarding/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any

	for line := range bytes.SplitSeq(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var record map[string]any
		require.NoError(t, json.Unmarshal(line, &record))

		records = append(records, record)
	}

	return records
}

func TestConfigureJSON(t *testing.T) { //nolint:paralleltest
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer

	Configure(Options{Subsystem: "onboarding", JSON: true, MinLevel: slog.LevelInfo, Output: &buf})

	ctx := WithUserID(t.Context(), "user-1")
	Get(ctx).Info("with user")
	Get(t.Context()).Debug("filtered")
	Get(WithMuted(ctx, true)).Error("muted")
	log.Println("legacy")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "with user", records[0]["msg"])
	assert.Equal(t, "onboarding", records[0]["subsystem"])
	assert.Equal(t, "user-1", records[0]["user_id"])
	assert.Equal(t, "legacy", records[1]["msg"])
}

func TestConfigureFromConfig(t *testing.T) { //nolint:paralleltest
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer

	logger := ConfigureFromConfig(&config.Config{LogLevel: slog.LevelDebug}, "cli", &buf)
	logger.Debug("text output")

	assert.Contains(t, buf.String(), "msg=\"text output\"")
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
}
