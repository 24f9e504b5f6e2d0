// Package draft stores in-progress onboarding form data per step.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rockethooks/onboarding/kv"
	"github.com/rockethooks/onboarding/onboarding"
)

const keyPrefix = "draft:"

// Validator decides whether a draft is complete enough to submit.
type Validator func(data map[string]any) bool

// Store implements onboarding.DraftStore on top of a kv.Store.
type Store struct {
	kv         kv.Store
	validators map[onboarding.Step]Validator
	logger     *slog.Logger
}

var _ onboarding.DraftStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithValidator replaces the validator of a step.
func WithValidator(step onboarding.Step, validator Validator) Option {
	return func(s *Store) {
		s.validators[step] = validator
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a draft store with the default validators.
func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv: store,
		validators: map[onboarding.Step]Validator{
			onboarding.StepOrganization: ValidOrganization,
			onboarding.StepProfile:      ValidProfile,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Key returns the storage key of a step's draft.
func Key(step onboarding.Step) string {
	return keyPrefix + string(step)
}

// GetDraft returns the saved draft or nil. Unreadable drafts are logged and
// treated as missing.
func (s *Store) GetDraft(ctx context.Context, step onboarding.Step) map[string]any {
	raw, ok, err := s.kv.Get(ctx, Key(step))
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read draft", "step", step, "error", err)

		return nil
	}

	if !ok {
		return nil
	}

	var data map[string]any

	err = json.Unmarshal(raw, &data)
	if err != nil {
		s.logger.WarnContext(ctx, "Discarding corrupt draft", "step", step, "error", err)

		return nil
	}

	return data
}

// SaveDraft replaces the draft of a step.
func (s *Store) SaveDraft(ctx context.Context, step onboarding.Step, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", step, err)
	}

	err = s.kv.Put(ctx, Key(step), raw)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", step, err)
	}

	return nil
}

// ClearStepDraft deletes the draft of a step.
func (s *Store) ClearStepDraft(ctx context.Context, step onboarding.Step) error {
	err := s.kv.Delete(ctx, Key(step))
	if err != nil {
		return fmt.Errorf("clear draft %s: %w", step, err)
	}

	return nil
}

// ValidateDraft applies the step's validator. Steps without one are always valid.
func (s *Store) ValidateDraft(step onboarding.Step, data map[string]any) bool {
	validator, ok := s.validators[step]
	if !ok || validator == nil {
		return true
	}

	return validator(data)
}

// ValidOrganization requires a non-blank name.
func ValidOrganization(data map[string]any) bool {
	return nonBlank(data, "name")
}

// ValidProfile requires a first name and a selected role.
func ValidProfile(data map[string]any) bool {
	return nonBlank(data, "firstName") && nonBlank(data, "role")
}

func nonBlank(data map[string]any, field string) bool {
	value, ok := data[field].(string)

	return ok && strings.TrimSpace(value) != ""
}
