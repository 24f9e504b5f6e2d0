// Package visualizer generates Mermaid diagrams from transition tables.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rockethooks/onboarding/statemachine"
)

// Visualizer errors.
var (
	ErrTableNil       = errors.New("table cannot be nil")
	ErrNoInitialState = errors.New("initial state is required")
	ErrUnknownTheme   = errors.New("unknown theme")
	ErrBadDirection   = errors.New("direction must be TB, BT, LR or RL")
)

var themes = map[string][]string{
	"default": {
		"classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px",
		"classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px",
	},
	"dark": {
		"classDef finalState fill:#1b5e20,stroke:#a5d6a7,color:#ffffff,stroke-width:2px",
		"classDef highlighted fill:#e65100,stroke:#ffe0b2,color:#ffffff,stroke-width:3px",
	},
}

// GenerateMermaid converts a table to a Mermaid state diagram.
func GenerateMermaid[C any](table *statemachine.Table[C], initial string) (string, error) {
	return GenerateMermaidWithOptions(table, initial, DefaultOptions())
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions[C any](table *statemachine.Table[C], initial string, opts Options) (string, error) {
	if table == nil {
		return "", ErrTableNil
	}

	if initial == "" {
		return "", ErrNoInitialState
	}

	classDefs, ok := themes[opts.Theme]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, opts.Theme)
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TB"
	}

	if !slices.Contains([]string{"TB", "BT", "LR", "RL"}, direction) {
		return "", fmt.Errorf("%w: %q", ErrBadDirection, direction)
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", initial)

	// Build transition map: from state -> list of transitions
	transitionMap := make(map[string][]statemachine.Transition[C])
	for _, transition := range table.Transitions() {
		if slices.Contains(opts.HideEvents, transition.Event) {
			continue
		}

		transitionMap[transition.From] = append(transitionMap[transition.From], transition)
	}

	for _, state := range table.States() {
		for _, transition := range transitionMap[state] {
			fmt.Fprintf(&sb, "    %s --> %s%s\n", state, transition.To.Name(), edgeLabel(transition, opts))
		}
	}

	for _, final := range opts.FinalStates {
		fmt.Fprintf(&sb, "    %s --> [*]\n", final)
	}

	highlighted := make(map[string]bool)
	for _, state := range opts.HighlightPath {
		highlighted[state] = true
	}

	var styled bool

	for _, state := range table.States() {
		switch {
		case highlighted[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state)
		case slices.Contains(opts.FinalStates, state):
			fmt.Fprintf(&sb, "    class %s finalState\n", state)
		default:
			continue
		}

		styled = true
	}

	if styled {
		sb.WriteString("\n")

		for _, def := range classDefs {
			fmt.Fprintf(&sb, "    %s\n", def)
		}
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func edgeLabel[C any](transition statemachine.Transition[C], opts Options) string {
	var label string

	if opts.ShowEvents {
		label = transition.Event
	}

	if opts.ShowGuards && transition.Guarded() {
		label = strings.TrimSpace(label + " [guarded]")
	}

	if label == "" {
		return ""
	}

	return ": " + label
}
