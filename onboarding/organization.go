package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Organization creation errors.
var (
	ErrNotInOrganizationSetup   = errors.New("machine is not in organization setup")
	ErrInvalidOrganizationDraft = errors.New("organization draft is not valid")
	ErrEmptyOrganizationID      = errors.New("organization was created without an id")
)

// CreateOrganization runs the asynchronous creation call for the current
// organization draft and dispatches its outcome: OrganizationCreated on
// success, Error with the failure otherwise. The machine is not locked while
// the call is in flight. If ctx ends first the result is discarded and
// nothing is dispatched.
//
// The boolean reports whether the follow-up event fired.
func (m *Machine) CreateOrganization(ctx context.Context, creator OrganizationCreator) (bool, error) {
	if m.State().Name() != StateOrganizationSetup {
		return false, ErrNotInOrganizationSetup
	}

	drafts := m.rules.drafts
	if drafts == nil {
		return false, ErrNoDraftStore
	}

	draft := drafts.GetDraft(ctx, StepOrganization)
	if !drafts.ValidateDraft(StepOrganization, draft) {
		return false, ErrInvalidOrganizationDraft
	}

	name, _ := draft["name"].(string)

	org, err := creator.CreateOrganization(ctx, strings.TrimSpace(name))

	ctxErr := ctx.Err()
	if ctxErr != nil {
		m.logger.InfoContext(context.WithoutCancel(ctx), "Discarding organization creation result", "error", ctxErr)

		return false, ctxErr
	}

	if err == nil && strings.TrimSpace(org.ID) == "" {
		err = ErrEmptyOrganizationID
	}

	if err != nil {
		fired := m.Send(ctx, Failed{
			Code:    CodeOrganizationCreateFailed,
			Message: fmt.Sprintf("Could not create organization: %v", err),
			Field:   "name",
		})

		return fired, err
	}

	if org.Name == "" {
		org.Name = strings.TrimSpace(name)
	}

	return m.Send(ctx, OrganizationCreated{OrganizationID: org.ID, OrganizationName: org.Name}), nil
}
