// Package validator checks the shape of a transition table: every state
// reachable, no dead ends, a path to a final state from everywhere.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rockethooks/onboarding/statemachine"
)

// ErrInvalid is returned by Check when a table has validation errors.
var ErrInvalid = errors.New("invalid state machine")

// ValidationResult contains the results of validating a table.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a problem that makes the machine unusable.
type ValidationError struct {
	Code    string // Error code like "MISSING_TRANSITION"
	Message string
	State   string
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code    string
	Message string
	State   string
}

// Edge is one declared transition, reduced to names.
type Edge struct {
	From  string
	Event string
	To    string
}

// Graph is the static view of a machine the rules inspect.
type Graph struct {
	Initial string
	Finals  []string
	States  []string
	Edges   []Edge
}

// FromTable builds the graph of a table. Targets computed at runtime are not
// followed, only declared destinations.
func FromTable[C any](table *statemachine.Table[C], initial string, finals ...string) Graph {
	graph := Graph{
		Initial: initial,
		Finals:  finals,
		States:  table.States(),
	}

	for _, transition := range table.Transitions() {
		graph.Edges = append(graph.Edges, Edge{
			From:  transition.From,
			Event: transition.Event,
			To:    transition.To.Name(),
		})
	}

	return graph
}

// Validate runs the default rules against a table.
func Validate[C any](table *statemachine.Table[C], initial string, finals ...string) ValidationResult {
	return ValidateWithRules(FromTable(table, initial, finals...), DefaultRules())
}

// Check is Validate that folds errors into a single error wrapping ErrInvalid.
func Check[C any](table *statemachine.Table[C], initial string, finals ...string) (ValidationResult, error) {
	result := Validate(table, initial, finals...)
	if result.Valid {
		return result, nil
	}

	return result, fmt.Errorf("%w: %s", ErrInvalid, result.Summary())
}

// ValidateWithRules runs the given rules.
func ValidateWithRules(graph Graph, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, rule := range rules {
		ruleResult := rule.Check(graph)

		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// Summary joins the error messages on one line.
func (r ValidationResult) Summary() string {
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = e.Message
	}

	return strings.Join(messages, "; ")
}

// Codes returns the error codes in order, mostly for tests.
func (r ValidationResult) Codes() []string {
	codes := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		codes[i] = e.Code
	}

	return codes
}

// WarningCodes returns the warning codes in order.
func (r ValidationResult) WarningCodes() []string {
	codes := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		codes[i] = w.Code
	}

	return codes
}
