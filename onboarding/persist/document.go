package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rockethooks/onboarding/onboarding"
)

// Version is the schema version written by Encode.
const Version = 2

// legacyVersion is assumed for documents that carry no version.
const legacyVersion = 1

// Decoding errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrUnknownState       = errors.New("unknown state type")
	ErrMissingContext     = errors.New("snapshot has no context")
)

type document struct {
	CurrentState *stateDoc   `json:"currentState"`
	Context      *contextDoc `json:"context"`
	Version      *int        `json:"version"`
}

type stateDoc struct {
	Type          string         `json:"type"`
	Message       string         `json:"message,omitempty"`
	PreviousState *stateDoc      `json:"previousState,omitempty"`
	Draft         map[string]any `json:"draft,omitempty"`
}

type contextDoc struct {
	UserID         string                             `json:"userId"`
	OrganizationID *string                            `json:"organizationId"`
	CurrentStep    int                                `json:"currentStep"`
	TotalSteps     int                                `json:"totalSteps"`
	CompletedSteps json.RawMessage                    `json:"completedSteps"`
	SkippedSteps   json.RawMessage                    `json:"skippedSteps"`
	IsComplete     bool                               `json:"isComplete"`
	StartedAt      *time.Time                         `json:"startedAt"`
	CompletedAt    *time.Time                         `json:"completedAt"`
	LastUpdatedAt  *time.Time                         `json:"lastUpdatedAt"`
	Errors         []errorDoc                         `json:"errors"`
	DraftData      map[onboarding.Step]map[string]any `json:"draftData,omitempty"`
}

type errorDoc struct {
	ID        string    `json:"id"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
}

// Encode serializes a snapshot in the current schema. Step sets become
// sorted arrays.
func Encode(snapshot onboarding.Snapshot) ([]byte, error) {
	if snapshot.State == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrUnknownState)
	}

	if snapshot.Context == nil {
		return nil, ErrMissingContext
	}

	smCtx := snapshot.Context

	completed, err := json.Marshal(smCtx.CompletedSteps.Sorted())
	if err != nil {
		return nil, err
	}

	skipped, err := json.Marshal(smCtx.SkippedSteps.Sorted())
	if err != nil {
		return nil, err
	}

	ctxDoc := &contextDoc{
		UserID:         smCtx.UserID,
		CurrentStep:    smCtx.CurrentStep,
		TotalSteps:     smCtx.TotalSteps,
		CompletedSteps: completed,
		SkippedSteps:   skipped,
		IsComplete:     smCtx.IsComplete,
		StartedAt:      smCtx.StartedAt,
		CompletedAt:    smCtx.CompletedAt,
		LastUpdatedAt:  smCtx.LastUpdatedAt,
		Errors:         make([]errorDoc, 0, len(smCtx.Errors)),
		DraftData:      smCtx.DraftData,
	}

	if smCtx.OrganizationID != "" {
		ctxDoc.OrganizationID = &smCtx.OrganizationID
	}

	for _, entry := range smCtx.Errors {
		ctxDoc.Errors = append(ctxDoc.Errors, errorDoc{
			ID:        entry.ID.String(),
			Code:      entry.Code,
			Message:   entry.Message,
			Field:     entry.Field,
			Timestamp: entry.Timestamp,
			State:     entry.State,
		})
	}

	version := Version

	return json.Marshal(document{
		CurrentState: encodeState(snapshot.State),
		Context:      ctxDoc,
		Version:      &version,
	})
}

func encodeState(state onboarding.State) *stateDoc {
	doc := &stateDoc{Type: state.Name()}

	switch s := state.(type) {
	case onboarding.ErrorState:
		doc.Message = s.Message
		if s.Previous != nil {
			doc.PreviousState = encodeState(s.Previous)
		}
	case onboarding.OrganizationSetupState:
		doc.Draft = s.Draft
	}

	return doc
}

// Decode parses a snapshot of any supported version, migrating older
// documents to the current shape.
func Decode(data []byte) (onboarding.Snapshot, error) {
	var doc document

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return onboarding.Snapshot{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	version := legacyVersion
	if doc.Version != nil {
		version = *doc.Version
	}

	if version > Version || version < legacyVersion {
		return onboarding.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	if doc.Context == nil {
		return onboarding.Snapshot{}, ErrMissingContext
	}

	if version == legacyVersion {
		migrateV1(doc.Context)
	}

	state, err := decodeState(doc.CurrentState, true)
	if err != nil {
		return onboarding.Snapshot{}, err
	}

	return onboarding.Snapshot{State: state, Context: decodeContext(doc.Context)}, nil
}

func decodeState(doc *stateDoc, allowError bool) (onboarding.State, error) {
	if doc == nil {
		return onboarding.StartState{}, nil
	}

	state, ok := onboarding.NewState(doc.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, doc.Type)
	}

	switch state.(type) {
	case onboarding.ErrorState:
		// Retry must never land in Error again.
		if !allowError {
			return onboarding.StartState{}, nil
		}

		errState := onboarding.ErrorState{Message: doc.Message}

		if doc.PreviousState != nil {
			previous, err := decodeState(doc.PreviousState, false)
			if err != nil {
				return nil, err
			}

			errState.Previous = previous
		}

		return errState, nil
	case onboarding.OrganizationSetupState:
		return onboarding.OrganizationSetupState{Draft: doc.Draft}, nil
	default:
		return state, nil
	}
}

func decodeContext(doc *contextDoc) *onboarding.Context {
	smCtx := onboarding.NewContext(doc.UserID, doc.TotalSteps)
	smCtx.CurrentStep = doc.CurrentStep
	smCtx.IsComplete = doc.IsComplete
	smCtx.StartedAt = doc.StartedAt
	smCtx.CompletedAt = doc.CompletedAt
	smCtx.LastUpdatedAt = doc.LastUpdatedAt

	if doc.OrganizationID != nil {
		smCtx.OrganizationID = *doc.OrganizationID
	}

	for _, step := range decodeSteps(doc.CompletedSteps) {
		smCtx.CompleteStep(step)
	}

	// skipped wins a conflict
	for _, step := range decodeSteps(doc.SkippedSteps) {
		smCtx.SkipStep(step)
	}

	for _, entry := range doc.Errors {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			id = uuid.Nil
		}

		smCtx.Errors = append(smCtx.Errors, onboarding.ErrorEntry{
			ID:        id,
			Code:      entry.Code,
			Message:   entry.Message,
			Field:     entry.Field,
			Timestamp: entry.Timestamp,
			State:     entry.State,
		})
	}

	for step, data := range doc.DraftData {
		if data != nil {
			smCtx.DraftData[step] = data
		}
	}

	return smCtx
}

// decodeSteps reads a step array. Anything else decodes as empty.
func decodeSteps(raw json.RawMessage) []onboarding.Step {
	var steps []onboarding.Step

	err := json.Unmarshal(raw, &steps)
	if err != nil {
		return nil
	}

	return steps
}

// migrateV1 rewrites object-shaped step sets ({"organization": true}) as
// arrays of the keys whose value is truthy.
func migrateV1(doc *contextDoc) {
	doc.CompletedSteps = migrateSet(doc.CompletedSteps)
	doc.SkippedSteps = migrateSet(doc.SkippedSteps)
}

func migrateSet(raw json.RawMessage) json.RawMessage {
	var legacy map[string]any

	err := json.Unmarshal(raw, &legacy)
	if err != nil {
		return raw
	}

	steps := onboarding.NewStepSet()

	for key, value := range legacy {
		if truthy(value) {
			steps[onboarding.Step(key)] = struct{}{}
		}
	}

	migrated, err := json.Marshal(steps.Sorted())
	if err != nil {
		return nil
	}

	return migrated
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}
