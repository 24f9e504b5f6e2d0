package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCommand(opts *rootOptions) *cobra.Command {
	var logout bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restart onboarding from the first step",
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

			if logout {
				app.machine.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out, onboarding state cleared.")

				return nil
			}

			if !app.machine.Reset(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to reset.")

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Onboarding restarted.")

			return nil
		},
	}

	cmd.Flags().BoolVar(&logout, "logout", false, "also forget the user")

	return cmd
}
