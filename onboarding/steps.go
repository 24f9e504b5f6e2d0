package onboarding

import (
	"slices"
	"sort"
)

// Step names a page of the onboarding wizard.
type Step string

const (
	StepOrganization Step = "organization"
	StepProfile      Step = "profile"
	StepPreferences  Step = "preferences"
	StepCompletion   Step = "completion"
)

// canonicalSteps is the only order steps may appear in.
var canonicalSteps = []Step{StepOrganization, StepProfile, StepPreferences, StepCompletion}

// Known reports whether s is one of the steps the machine understands.
func (s Step) Known() bool {
	return slices.Contains(canonicalSteps, s)
}

func (s Step) String() string {
	return string(s)
}

// StepSet is an unordered set of steps.
type StepSet map[Step]struct{}

// NewStepSet builds a set from the given steps.
func NewStepSet(steps ...Step) StepSet {
	set := make(StepSet, len(steps))
	for _, step := range steps {
		set[step] = struct{}{}
	}

	return set
}

// Has reports membership.
func (s StepSet) Has(step Step) bool {
	_, ok := s[step]

	return ok
}

// Sorted returns the members in lexical order, for stable output.
func (s StepSet) Sorted() []Step {
	out := make([]Step, 0, len(s))
	for step := range s {
		out = append(out, step)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Clone copies the set. A nil set clones to an empty one.
func (s StepSet) Clone() StepSet {
	out := make(StepSet, len(s))
	for step := range s {
		out[step] = struct{}{}
	}

	return out
}
