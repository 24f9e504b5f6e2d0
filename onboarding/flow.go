package onboarding

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed default_flow.yaml
var defaultFlowYAML []byte

// Flow configuration errors.
var (
	ErrFlowNameRequired = errors.New("flow name is required")
	ErrUnknownStep      = errors.New("unknown step")
	ErrDuplicateStep    = errors.New("duplicate step")
	ErrStepOrder        = errors.New("steps must follow organization, profile, preferences, completion")
	ErrRequiredStep     = errors.New("step cannot be disabled")
	ErrStepNotSkippable = errors.New("step cannot be skippable")
	ErrMissingStep      = errors.New("required step is missing")
	ErrFlowUnreadable   = errors.New("flow file could not be read")
)

// requiredSteps must be present and enabled in every flow.
var requiredSteps = []Step{StepOrganization, StepProfile, StepCompletion}

// Flow is the configurable shape of the wizard.
type Flow struct {
	Name  string       `json:"name"  yaml:"name"`
	Steps []StepConfig `json:"steps" yaml:"steps"`
}

// StepConfig configures one step.
type StepConfig struct {
	Name      Step `json:"name"      yaml:"name"`
	Enabled   bool `json:"enabled"   yaml:"enabled"`
	Skippable bool `json:"skippable" yaml:"skippable"`
	AllowBack bool `json:"allowBack" yaml:"allowBack"`
}

// UnmarshalYAML defaults Enabled to true when the key is absent.
func (s *StepConfig) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		Name      Step  `yaml:"name"`
		Enabled   *bool `yaml:"enabled"`
		Skippable bool  `yaml:"skippable"`
		AllowBack bool  `yaml:"allowBack"`
	}

	var r raw

	err := node.Decode(&r)
	if err != nil {
		return err
	}

	*s = StepConfig{
		Name:      r.Name,
		Enabled:   r.Enabled == nil || *r.Enabled,
		Skippable: r.Skippable,
		AllowBack: r.AllowBack,
	}

	return nil
}

// DefaultFlow returns the canonical four-step flow.
func DefaultFlow() *Flow {
	flow, err := LoadFlowFromBytes(defaultFlowYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default flow is invalid: %v", err))
	}

	return flow
}

// LoadFlow loads a flow from a YAML file.
func LoadFlow(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrFlowUnreadable, path, err)
	}

	return LoadFlowFromBytes(data)
}

// LoadFlowFromFS loads a flow from a filesystem, typically an embed.FS.
func LoadFlowFromFS(fsys fs.FS, path string) (*Flow, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrFlowUnreadable, path, err)
	}

	return LoadFlowFromBytes(data)
}

// LoadFlowFromBytes parses and validates a YAML flow.
func LoadFlowFromBytes(data []byte) (*Flow, error) {
	var flow Flow

	err := yaml.Unmarshal(data, &flow)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = flow.Validate()
	if err != nil {
		return nil, err
	}

	return &flow, nil
}

// Validate checks that the flow can be turned into a transition table.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return ErrFlowNameRequired
	}

	seen := make(map[Step]bool)
	last := -1

	for i, step := range f.Steps {
		if !step.Name.Known() {
			return fmt.Errorf("step %d: %w: %q", i, ErrUnknownStep, step.Name)
		}

		if seen[step.Name] {
			return fmt.Errorf("step %d: %w: %s", i, ErrDuplicateStep, step.Name)
		}

		seen[step.Name] = true

		position := slices.Index(canonicalSteps, step.Name)
		if position < last {
			return fmt.Errorf("step %d: %w", i, ErrStepOrder)
		}

		last = position

		if !step.Enabled && slices.Contains(requiredSteps, step.Name) {
			return fmt.Errorf("step %s: %w", step.Name, ErrRequiredStep)
		}

		if step.Skippable && (step.Name == StepProfile || step.Name == StepCompletion) {
			return fmt.Errorf("step %s: %w", step.Name, ErrStepNotSkippable)
		}
	}

	for _, step := range requiredSteps {
		if !seen[step] {
			return fmt.Errorf("%w: %s", ErrMissingStep, step)
		}
	}

	return nil
}

// EnabledSteps returns the enabled steps in order.
func (f *Flow) EnabledSteps() []Step {
	var steps []Step

	for _, step := range f.Steps {
		if step.Enabled {
			steps = append(steps, step.Name)
		}
	}

	return steps
}

// TotalSteps is the number of enabled steps.
func (f *Flow) TotalSteps() int {
	return len(f.EnabledSteps())
}

// Ordinal returns the 1-based position of an enabled step, or 0.
func (f *Flow) Ordinal(step Step) int {
	return slices.Index(f.EnabledSteps(), step) + 1
}

// Step returns the configuration of a step.
func (f *Flow) Step(step Step) (StepConfig, bool) {
	for _, cfg := range f.Steps {
		if cfg.Name == step {
			return cfg, true
		}
	}

	return StepConfig{}, false
}

// Enabled reports whether a step is part of the flow.
func (f *Flow) Enabled(step Step) bool {
	cfg, ok := f.Step(step)

	return ok && cfg.Enabled
}

// Skippable reports whether a step can be skipped.
func (f *Flow) Skippable(step Step) bool {
	cfg, ok := f.Step(step)

	return ok && cfg.Enabled && cfg.Skippable
}

// AllowBack reports whether the user can navigate back from a step.
func (f *Flow) AllowBack(step Step) bool {
	cfg, ok := f.Step(step)

	return ok && cfg.Enabled && cfg.AllowBack
}
