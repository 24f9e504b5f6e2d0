package onboarding

import "context"

// DraftStore keeps in-progress form data per step outside the machine.
type DraftStore interface {
	// GetDraft returns the saved draft, or nil when there is none.
	GetDraft(ctx context.Context, step Step) map[string]any
	SaveDraft(ctx context.Context, step Step, data map[string]any) error
	ClearStepDraft(ctx context.Context, step Step) error
	// ValidateDraft reports whether a draft is complete enough to submit.
	ValidateDraft(step Step, data map[string]any) bool
}

// Snapshot is the persisted pair of state and context.
type Snapshot struct {
	State   State
	Context *Context
}

// Persister stores a snapshot after every committed change.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
}

// Organization is the result of a successful creation call.
type Organization struct {
	ID   string
	Name string
}

// OrganizationCreator creates organizations on the backend.
type OrganizationCreator interface {
	CreateOrganization(ctx context.Context, name string) (Organization, error)
}

// OrganizationCreatorFunc adapts a function to OrganizationCreator.
type OrganizationCreatorFunc func(ctx context.Context, name string) (Organization, error)

// CreateOrganization calls f.
func (f OrganizationCreatorFunc) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	return f(ctx, name)
}
