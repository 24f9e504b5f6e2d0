// Package cli holds the interactive terminal prompts used by the wizard.
package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrInterrupted is returned when the user presses Ctrl-C or Ctrl-D.
var ErrInterrupted = errors.New("prompt interrupted")

// ErrRequired is the validation error for empty required input.
var ErrRequired = errors.New("you must enter something")

// Prompter asks the user for input.
type Prompter interface {
	// Input reads a line. initial prefills the field; validate may be nil.
	Input(label, initial string, validate func(string) error) (string, error)
	// Select picks one of items and returns it.
	Select(label string, items []string) (string, error)
	// Confirm asks a yes/no question. "No" is not an error.
	Confirm(label string) (bool, error)
}

// Terminal prompts on a terminal through promptui.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

var _ Prompter = (*Terminal)(nil)

// NewTerminal prompts on the process stdin and stdout.
func NewTerminal() *Terminal {
	return &Terminal{Stdin: os.Stdin, Stdout: os.Stdout}
}

func (t *Terminal) Input(label, initial string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   initial,
		AllowEdit: initial != "",
		Validate:  validate,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}

	value, err := prompt.Run()
	if err != nil {
		return "", translate(err)
	}

	return strings.TrimSpace(value), nil
}

func (t *Terminal) Select(label string, items []string) (string, error) {
	sel := promptui.Select{
		Label:  label,
		Items:  items,
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", translate(err)
	}

	return value, nil
}

func (t *Terminal) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}

	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}

	if err != nil {
		return false, translate(err)
	}

	return true, nil
}

// Required rejects blank input.
func Required(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrRequired
	}

	return nil
}

func translate(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrInterrupted
	}

	return err
}
