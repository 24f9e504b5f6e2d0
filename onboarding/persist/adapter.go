// Package persist stores onboarding snapshots in a kv.Store as versioned JSON.
package persist

import (
	"context"
	"log/slog"

	"github.com/rockethooks/onboarding/kv"
	"github.com/rockethooks/onboarding/onboarding"
)

// DefaultKey is where the snapshot lives unless WithKey says otherwise.
const DefaultKey = "onboarding:state"

// Adapter is an onboarding.Persister over a kv.Store.
type Adapter struct {
	store  kv.Store
	key    string
	logger *slog.Logger
}

var _ onboarding.Persister = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter writing to store.
func NewAdapter(store kv.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Key returns the storage key.
func (a *Adapter) Key() string {
	return a.key
}

// Save encodes and writes a snapshot.
func (a *Adapter) Save(ctx context.Context, snapshot onboarding.Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}

	return a.store.Put(ctx, a.key, data)
}

// Load reads the stored snapshot. It never fails: a missing, unreadable or
// unsupported document yields a fresh snapshot at Start, and the boolean is
// false. A fresh snapshot has no user and no step count so the machine fills
// both in.
func (a *Adapter) Load(ctx context.Context) (onboarding.Snapshot, bool) {
	data, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to read onboarding state", "key", a.key, "error", err)

		return Fresh(), false
	}

	if !ok {
		return Fresh(), false
	}

	snapshot, err := Decode(data)
	if err != nil {
		a.logger.WarnContext(ctx, "Discarding unreadable onboarding state", "key", a.key, "error", err)

		return Fresh(), false
	}

	return snapshot, true
}

// Clear deletes the stored snapshot.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.store.Delete(ctx, a.key)
}

// Fresh is the snapshot used when nothing usable is stored.
func Fresh() onboarding.Snapshot {
	return onboarding.Snapshot{
		State:   onboarding.StartState{},
		Context: onboarding.NewContext("", 0),
	}
}
