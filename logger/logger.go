// Package logger configures the process-wide slog logger and carries
// per-request attributes through context.Context.
package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rockethooks/onboarding/config"
)

// subsystem names the binary in every record.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes Configure, which swaps global loggers.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

const (
	userIDKey contextKey = "user_id"
	mutedKey  contextKey = "mute"
)

// Options is used to configure logging.
type Options struct {
	Subsystem string
	JSON      bool
	MinLevel  slog.Level
	Output    io.Writer
}

// Configure installs a text or JSON handler as slog's default and redirects
// the legacy log package into it. It returns the new default logger.
func Configure(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.MinLevel}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	// third party packages still writing through log end up in slog at info
	def := log.Default()
	*def = *slog.NewLogLogger(handler, slog.LevelInfo)

	subsystem.Store(opts.Subsystem)

	return logger
}

// ConfigureFromConfig applies the logging part of cfg.
func ConfigureFromConfig(cfg *config.Config, app string, output io.Writer) *slog.Logger {
	return Configure(Options{
		Subsystem: app,
		JSON:      cfg.LogJSON,
		MinLevel:  cfg.LogLevel,
		Output:    output,
	})
}

// WithUserID attaches the signed-in user to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithMuted suppresses all logging through Get for this context.
func WithMuted(ctx context.Context, muted bool) context.Context {
	return context.WithValue(ctx, mutedKey, muted)
}

// Get returns the default logger decorated with the subsystem and any
// attributes carried by ctx.
func Get(ctx context.Context) *slog.Logger {
	if muted, _ := ctx.Value(mutedKey).(bool); muted {
		return slog.New(slog.DiscardHandler)
	}

	logger := slog.Default()

	if name, _ := subsystem.Load().(string); name != "" {
		logger = logger.With("subsystem", name)
	}

	if userID, _ := ctx.Value(userIDKey).(string); userID != "" {
		logger = logger.With("user_id", userID)
	}

	return logger
}
