package onboarding

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

var errorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://rockethooks.dev/onboarding/errors"))

// ErrorEntry is one line of the user-visible error log.
type ErrorEntry struct {
	ID        uuid.UUID
	Code      string
	Message   string
	Field     string
	Timestamp time.Time
	State     string
}

// Context is the record carried alongside the flow state.
type Context struct {
	UserID         string
	OrganizationID string

	CurrentStep int
	TotalSteps  int

	CompletedSteps StepSet
	SkippedSteps   StepSet

	IsComplete    bool
	StartedAt     *time.Time
	CompletedAt   *time.Time
	LastUpdatedAt *time.Time

	Errors    []ErrorEntry
	DraftData map[Step]map[string]any
}

// NewContext returns a fresh context for a user at the beginning of a flow.
func NewContext(userID string, totalSteps int) *Context {
	return &Context{
		UserID:         userID,
		TotalSteps:     totalSteps,
		CompletedSteps: NewStepSet(),
		SkippedSteps:   NewStepSet(),
		Errors:         []ErrorEntry{},
		DraftData:      map[Step]map[string]any{},
	}
}

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	clone := *c
	clone.CompletedSteps = c.CompletedSteps.Clone()
	clone.SkippedSteps = c.SkippedSteps.Clone()
	clone.StartedAt = cloneTime(c.StartedAt)
	clone.CompletedAt = cloneTime(c.CompletedAt)
	clone.LastUpdatedAt = cloneTime(c.LastUpdatedAt)
	clone.Errors = append([]ErrorEntry{}, c.Errors...)

	clone.DraftData = make(map[Step]map[string]any, len(c.DraftData))
	for step, data := range c.DraftData {
		clone.DraftData[step] = CloneDraft(data)
	}

	return &clone
}

// CompleteStep marks a step completed, removing it from the skipped set.
func (c *Context) CompleteStep(step Step) {
	delete(c.SkippedSteps, step)

	if c.CompletedSteps == nil {
		c.CompletedSteps = NewStepSet()
	}

	c.CompletedSteps[step] = struct{}{}
}

// SkipStep marks a step skipped, removing it from the completed set.
func (c *Context) SkipStep(step Step) {
	delete(c.CompletedSteps, step)

	if c.SkippedSteps == nil {
		c.SkippedSteps = NewStepSet()
	}

	c.SkippedSteps[step] = struct{}{}
}

// ClearErrors empties the error log, as when the user dismisses the banner.
func (c *Context) ClearErrors() {
	c.Errors = []ErrorEntry{}
}

func (c *Context) touch(now time.Time) {
	c.LastUpdatedAt = &now
}

func (c *Context) appendError(entry ErrorEntry) {
	// IDs are derived from content so replaying the same events yields the same log.
	if entry.ID == uuid.Nil {
		entry.ID = uuid.NewSHA1(errorNamespace, fmt.Appendf(nil, "%s/%d/%s/%s/%s",
			c.UserID, len(c.Errors), entry.State, entry.Code, entry.Timestamp.Format(time.RFC3339Nano)))
	}

	// The log never predates the flow.
	if c.StartedAt != nil && entry.Timestamp.Before(*c.StartedAt) {
		entry.Timestamp = *c.StartedAt
	}

	c.Errors = append(c.Errors, entry)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	clone := *t

	return &clone
}

// normalizeDraft reshapes draft data into the values JSON decoding yields, so
// the in-memory copy matches what the draft store and snapshots read back.
func normalizeDraft(data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}

	var out map[string]any

	err = json.Unmarshal(raw, &out)
	if err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}

	return out, nil
}

// CloneDraft deep-copies draft form data made of JSON-like values.
func CloneDraft(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = cloneValue(value)
	}

	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneDraft(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}

		return out
	case []string:
		return append([]string(nil), v...)
	case map[string]string:
		return maps.Clone(v)
	default:
		return v
	}
}
