package onboarding

import (
	"errors"
	"strings"
)

// Event names.
const (
	EventBegin               = "Begin"
	EventHasOrganization     = "HasOrganization"
	EventNoOrganization      = "NoOrganization"
	EventOrganizationCreated = "OrganizationCreated"
	EventSkipOrganization    = "SkipOrganization"
	EventProfileCompleted    = "ProfileCompleted"
	EventPreferencesSaved    = "PreferencesSaved"
	EventSkipPreferences     = "SkipPreferences"
	EventComplete            = "Complete"
	EventBack                = "Back"
	EventSkip                = "Skip"
	EventRetry               = "Retry"
	EventReset               = "Reset"
	EventError               = "Error"
)

// Payload errors.
var (
	ErrOrganizationNameWithoutID = errors.New("organization name given without an id")
	ErrErrorDetailWithoutMessage = errors.New("error code or field given without a message")
)

type (
	// Begin starts the flow.
	Begin struct{}

	// HasOrganization reports the user already belongs to an organization.
	// OrganizationID may be empty when the id is already on the context.
	HasOrganization struct {
		OrganizationID string
	}

	// NoOrganization reports the user has no organization yet.
	NoOrganization struct{}

	// OrganizationCreated carries the result of a successful creation call.
	OrganizationCreated struct {
		OrganizationID   string
		OrganizationName string
	}

	// SkipOrganization skips the organization step.
	SkipOrganization struct{}

	// ProfileCompleted submits the profile form.
	ProfileCompleted struct{}

	// PreferencesSaved submits the preferences form.
	PreferencesSaved struct{}

	// SkipPreferences skips the preferences step.
	SkipPreferences struct{}

	// Complete finishes the flow.
	Complete struct{}

	// Back navigates to the previous step.
	Back struct{}

	// Skip skips the current step, whatever it is.
	Skip struct{}

	// Retry leaves the error state.
	Retry struct{}

	// Reset restarts the flow.
	Reset struct{}

	// Failed raises a domain error. Its tag is "Error".
	Failed struct {
		Code    string
		Message string
		Field   string
	}
)

func (Begin) Name() string               { return EventBegin }
func (HasOrganization) Name() string     { return EventHasOrganization }
func (NoOrganization) Name() string      { return EventNoOrganization }
func (OrganizationCreated) Name() string { return EventOrganizationCreated }
func (SkipOrganization) Name() string    { return EventSkipOrganization }
func (ProfileCompleted) Name() string    { return EventProfileCompleted }
func (PreferencesSaved) Name() string    { return EventPreferencesSaved }
func (SkipPreferences) Name() string     { return EventSkipPreferences }
func (Complete) Name() string            { return EventComplete }
func (Back) Name() string                { return EventBack }
func (Skip) Name() string                { return EventSkip }
func (Retry) Name() string               { return EventRetry }
func (Reset) Name() string               { return EventReset }
func (Failed) Name() string              { return EventError }

// Validate rejects a name that cannot be linked to anything.
func (e OrganizationCreated) Validate() error {
	if strings.TrimSpace(e.OrganizationID) == "" && strings.TrimSpace(e.OrganizationName) != "" {
		return ErrOrganizationNameWithoutID
	}

	return nil
}

// Validate rejects error details that would produce an empty banner.
func (e Failed) Validate() error {
	if e.Message == "" && (e.Code != "" || e.Field != "") {
		return ErrErrorDetailWithoutMessage
	}

	return nil
}
