package main

import (
	"github.com/rockethooks/onboarding/cli"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags. Empty values fall back to the environment.
type rootOptions struct {
	envFile string
	db      string
	flow    string
	user    string
}

func newRootCommand(prompter cli.Prompter) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "onboarding",
		Short:         "Walk through RocketHooks onboarding from the terminal",
		Long:          "Drive the RocketHooks onboarding flow, inspect its persisted state, and render its graph.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file seeding unset variables")
	cmd.PersistentFlags().StringVar(&opts.db, "db", "", "SQLite database path, or :memory: (default $ONBOARDING_DB)")
	cmd.PersistentFlags().StringVar(&opts.flow, "flow", "", "flow YAML file (default $ONBOARDING_FLOW or built-in)")
	cmd.PersistentFlags().StringVar(&opts.user, "user", "", "user id (default $ONBOARDING_USER_ID)")

	cmd.AddCommand(newRunCommand(opts, prompter))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newGraphCommand(opts))

	return cmd
}
