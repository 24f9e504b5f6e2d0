// Package shutdown cancels a context on SIGINT/SIGTERM and runs cleanup
// hooks exactly once.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Hook releases a resource. The context is still alive when hooks run.
type Hook func(ctx context.Context) error

// Handler collects hooks and triggers them on a signal or explicit Run.
type Handler struct {
	mu     sync.Mutex
	hooks  []namedHook
	once   sync.Once
	logger *slog.Logger
}

type namedHook struct {
	name string
	fn   Hook
}

// New creates a handler. A nil logger means slog.Default().
func New(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{logger: logger}
}

// BeforeShutdown registers a hook. Hooks run in reverse registration order,
// so resources opened later are released first.
func (h *Handler) BeforeShutdown(name string, fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, namedHook{name: name, fn: fn})
}

// Notify returns a context canceled on SIGINT or SIGTERM. The stop function
// releases the signal registration.
func (h *Handler) Notify(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Run executes the hooks once. Later calls do nothing. Hook failures are
// logged and the first one is returned.
func (h *Handler) Run(ctx context.Context) error {
	var first error

	h.once.Do(func() {
		h.mu.Lock()
		hooks := h.hooks
		h.hooks = nil
		h.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			err := hooks[i].fn(ctx)
			if err != nil {
				h.logger.WarnContext(ctx, "Shutdown hook failed", "hook", hooks[i].name, "error", err)

				if first == nil {
					first = err
				}
			}
		}
	})

	return first
}
