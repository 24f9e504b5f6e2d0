package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rockethooks/onboarding/cli"
	"github.com/rockethooks/onboarding/onboarding"
	"github.com/spf13/cobra"
)

// Menu choices.
const (
	choiceContinue = "Continue"
	choiceSkip     = "Skip this step"
	choiceBack     = "Go back"
	choiceRetry    = "Retry"
	choiceReset    = "Start over"
	choiceQuit     = "Save and quit"
)

var (
	roles   = []string{"developer", "engineering manager", "product", "other"}
	digests = []string{"daily", "weekly", "never"}
)

var errUnexpectedState = errors.New("unexpected state")

func newRunCommand(opts *rootOptions, prompter cli.Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the onboarding wizard, resuming where it was left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := openApplication(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() {
				_ = app.Close(context.WithoutCancel(ctx))
			}()

			creator, err := app.creator()
			if err != nil {
				return err
			}

			w := &wizard{
				machine: app.machine,
				creator: creator,
				prompt:  prompter,
				out:     cmd.OutOrStdout(),
			}

			if app.restored {
				fmt.Fprintf(w.out, "Resuming at %s.\n", app.machine.State().Name())
			}

			return w.run(ctx)
		},
	}
}

// wizard renders one prompt per state and dispatches the answer.
type wizard struct {
	machine *onboarding.Machine
	creator onboarding.OrganizationCreator
	prompt  cli.Prompter
	out     io.Writer
}

func (w *wizard) run(ctx context.Context) error {
	for {
		state := w.machine.State()
		if onboarding.IsTerminal(state) {
			fmt.Fprintln(w.out, "Onboarding complete. Welcome to your dashboard.")

			return nil
		}

		err := ctx.Err()
		if err != nil {
			return err
		}

		quit, err := w.step(ctx, state)
		if errors.Is(err, cli.ErrInterrupted) {
			quit, err = true, nil
		}

		if err != nil {
			return err
		}

		if quit {
			fmt.Fprintf(w.out, "Progress saved at %s.\n", w.machine.State().Name())

			return nil
		}
	}
}

func (w *wizard) step(ctx context.Context, state onboarding.State) (bool, error) {
	switch s := state.(type) {
	case onboarding.StartState:
		w.machine.Send(ctx, onboarding.Begin{})

		return false, nil
	case onboarding.CheckOrganizationState:
		if w.machine.CanTransition(ctx, onboarding.HasOrganization{}) {
			w.machine.Send(ctx, onboarding.HasOrganization{})
		} else {
			w.machine.Send(ctx, onboarding.NoOrganization{})
		}

		return false, nil
	case onboarding.OrganizationSetupState:
		return w.organization(ctx, s)
	case onboarding.ProfileCompletionState:
		return w.profile(ctx)
	case onboarding.PreferencesState:
		return w.preferences(ctx)
	case onboarding.CompletionState:
		return w.completion(ctx)
	case onboarding.ErrorState:
		return w.handleError(ctx, s)
	default:
		return false, fmt.Errorf("%w: %s", errUnexpectedState, state.Name())
	}
}

// menu shows the progress header and the choices valid right now. It
// reports whether the caller should handle choiceContinue itself.
func (w *wizard) menu(ctx context.Context, title, proceed string) (bool, bool, error) {
	progress := w.machine.Progress(ctx)
	fmt.Fprintf(w.out, "\n%s (step %d of %d, %d%%)\n", title,
		progress.CurrentStep, progress.TotalSteps, progress.Percentage)

	items := []string{proceed}
	if progress.CanSkip {
		items = append(items, choiceSkip)
	}

	if progress.CanGoBack {
		items = append(items, choiceBack)
	}

	items = append(items, choiceQuit)

	choice, err := w.prompt.Select(title, items)
	if err != nil {
		return false, false, err
	}

	switch choice {
	case choiceSkip:
		w.machine.Skip(ctx)
	case choiceBack:
		w.machine.GoBack(ctx)
	case choiceQuit:
		return false, true, nil
	default:
		return true, false, nil
	}

	return false, false, nil
}

func (w *wizard) organization(ctx context.Context, s onboarding.OrganizationSetupState) (bool, error) {
	proceed, quit, err := w.menu(ctx, "Organization", choiceContinue)
	if !proceed || err != nil {
		return quit, err
	}

	initial, _ := s.Draft["name"].(string)

	name, err := w.prompt.Input("Organization name", initial, cli.Required)
	if err != nil {
		return false, err
	}

	err = w.machine.SaveDraft(ctx, onboarding.StepOrganization, map[string]any{"name": name})
	if err != nil {
		return false, err
	}

	_, err = w.machine.CreateOrganization(ctx, w.creator)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		fmt.Fprintf(w.out, "Organization was not created: %v\n", err)
	}

	return false, nil
}

func (w *wizard) profile(ctx context.Context) (bool, error) {
	proceed, quit, err := w.menu(ctx, "Profile", choiceContinue)
	if !proceed || err != nil {
		return quit, err
	}

	saved := w.machine.Context().DraftData[onboarding.StepProfile]
	initial, _ := saved["firstName"].(string)

	firstName, err := w.prompt.Input("First name", initial, cli.Required)
	if err != nil {
		return false, err
	}

	role, err := w.prompt.Select("Role", roles)
	if err != nil {
		return false, err
	}

	err = w.machine.SaveDraft(ctx, onboarding.StepProfile, map[string]any{"firstName": firstName, "role": role})
	if err != nil {
		return false, err
	}

	if !w.machine.Send(ctx, onboarding.ProfileCompleted{}) {
		fmt.Fprintln(w.out, "Profile is incomplete.")
	}

	return false, nil
}

func (w *wizard) preferences(ctx context.Context) (bool, error) {
	proceed, quit, err := w.menu(ctx, "Preferences", choiceContinue)
	if !proceed || err != nil {
		return quit, err
	}

	digest, err := w.prompt.Select("Alert digest", digests)
	if err != nil {
		return false, err
	}

	err = w.machine.SaveDraft(ctx, onboarding.StepPreferences, map[string]any{"digest": digest})
	if err != nil {
		return false, err
	}

	w.machine.Send(ctx, onboarding.PreferencesSaved{})

	return false, nil
}

func (w *wizard) completion(ctx context.Context) (bool, error) {
	proceed, quit, err := w.menu(ctx, "All set", choiceContinue)
	if !proceed || err != nil {
		return quit, err
	}

	ok, err := w.prompt.Confirm("Finish onboarding")
	if err != nil || !ok {
		return false, err
	}

	w.machine.Send(ctx, onboarding.Complete{})

	return false, nil
}

func (w *wizard) handleError(ctx context.Context, s onboarding.ErrorState) (bool, error) {
	fmt.Fprintf(w.out, "\nSomething went wrong: %s\n", s.Message)

	choice, err := w.prompt.Select("What next", []string{choiceRetry, choiceReset, choiceQuit})
	if err != nil {
		return false, err
	}

	switch choice {
	case choiceRetry:
		w.machine.Send(ctx, onboarding.Retry{})
	case choiceReset:
		w.machine.Reset(ctx)
	default:
		return true, nil
	}

	return false, nil
}
