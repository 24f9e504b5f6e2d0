package validator

import (
	"fmt"
	"slices"
	"unicode"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a graph for one kind of issue.
type Rule interface {
	Name() string
	Severity() Severity
	Check(graph Graph) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&initialStateRule{},
		&finalStateRule{},
		&unreachableStateRule{},
		&missingTransitionRule{},
		&trappedStateRule{},
		&namingConventionRule{},
	}
}

// initialStateRule requires the initial state to have outgoing transitions.
type initialStateRule struct{}

func (r *initialStateRule) Name() string       { return "InitialState" }
func (r *initialStateRule) Severity() Severity { return SeverityError }

func (r *initialStateRule) Check(graph Graph) RuleResult {
	if slices.Contains(graph.States, graph.Initial) {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:    "UNKNOWN_INITIAL_STATE",
		Message: fmt.Sprintf("initial state '%s' has no transitions", graph.Initial),
		State:   graph.Initial,
	}}}
}

// finalStateRule requires every final state to be part of the table.
type finalStateRule struct{}

func (r *finalStateRule) Name() string       { return "FinalState" }
func (r *finalStateRule) Severity() Severity { return SeverityError }

func (r *finalStateRule) Check(graph Graph) RuleResult {
	var result RuleResult

	for _, final := range graph.Finals {
		if !slices.Contains(graph.States, final) {
			result.Errors = append(result.Errors, ValidationError{
				Code:    "UNKNOWN_FINAL_STATE",
				Message: fmt.Sprintf("final state '%s' is not in the table", final),
				State:   final,
			})
		}
	}

	return result
}

// unreachableStateRule flags states no path from the initial state leads to.
// They are warnings: a state kept only for escape edges (reset, error) is
// legitimate when a flow disables it.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string       { return "UnreachableState" }
func (r *unreachableStateRule) Severity() Severity { return SeverityWarning }

func (r *unreachableStateRule) Check(graph Graph) RuleResult {
	var result RuleResult

	reachable := graph.reachable(graph.Initial)

	for _, state := range graph.States {
		if !reachable[state] {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:    "UNREACHABLE_STATE",
				Message: fmt.Sprintf("state '%s' cannot be reached from initial state '%s'", state, graph.Initial),
				State:   state,
			})
		}
	}

	return result
}

// missingTransitionRule checks for non-final states without outgoing transitions.
type missingTransitionRule struct{}

func (r *missingTransitionRule) Name() string       { return "MissingTransition" }
func (r *missingTransitionRule) Severity() Severity { return SeverityError }

func (r *missingTransitionRule) Check(graph Graph) RuleResult {
	var result RuleResult

	hasOutgoing := make(map[string]bool)
	for _, edge := range graph.Edges {
		hasOutgoing[edge.From] = true
	}

	for _, state := range graph.States {
		if !slices.Contains(graph.Finals, state) && !hasOutgoing[state] {
			result.Errors = append(result.Errors, ValidationError{
				Code:    "MISSING_TRANSITION",
				Message: fmt.Sprintf("non-final state '%s' has no outgoing transitions", state),
				State:   state,
			})
		}
	}

	return result
}

// trappedStateRule flags reachable states from which no final state can be
// reached. It only applies when final states are declared.
type trappedStateRule struct{}

func (r *trappedStateRule) Name() string       { return "TrappedState" }
func (r *trappedStateRule) Severity() Severity { return SeverityError }

func (r *trappedStateRule) Check(graph Graph) RuleResult {
	var result RuleResult

	if len(graph.Finals) == 0 {
		return result
	}

	for _, state := range graph.States {
		if slices.Contains(graph.Finals, state) {
			continue
		}

		reachable := graph.reachable(state)
		if slices.ContainsFunc(graph.Finals, func(final string) bool { return reachable[final] }) {
			continue
		}

		result.Errors = append(result.Errors, ValidationError{
			Code:    "NO_PATH_TO_FINAL",
			Message: fmt.Sprintf("state '%s' cannot reach a final state", state),
			State:   state,
		})
	}

	return result
}

// namingConventionRule warns about state and event names that are not PascalCase.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string       { return "NamingConvention" }
func (r *namingConventionRule) Severity() Severity { return SeverityWarning }

func (r *namingConventionRule) Check(graph Graph) RuleResult {
	var result RuleResult

	for _, state := range graph.States {
		if !isPascalCase(state) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:    "NAMING_CONVENTION",
				Message: fmt.Sprintf("state '%s' should use PascalCase naming", state),
				State:   state,
			})
		}
	}

	var seen []string

	for _, edge := range graph.Edges {
		if slices.Contains(seen, edge.Event) {
			continue
		}

		seen = append(seen, edge.Event)

		if !isPascalCase(edge.Event) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:    "NAMING_CONVENTION",
				Message: fmt.Sprintf("event '%s' should use PascalCase naming", edge.Event),
				State:   edge.From,
			})
		}
	}

	return result
}

func isPascalCase(s string) bool {
	if s == "" || !unicode.IsUpper(rune(s[0])) {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// reachable returns the states reachable from start by declared edges.
func (g Graph) reachable(start string) map[string]bool {
	reachable := map[string]bool{start: true}

	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.Edges {
			if edge.From == current && !reachable[edge.To] {
				reachable[edge.To] = true
				queue = append(queue, edge.To)
			}
		}
	}

	return reachable
}
