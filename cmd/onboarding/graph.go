package main

import (
	"fmt"

	"github.com/rockethooks/onboarding/config"
	"github.com/rockethooks/onboarding/logger"
	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/statemachine/visualizer"
	"github.com/spf13/cobra"
)

func newGraphCommand(opts *rootOptions) *cobra.Command {
	var (
		direction  string
		theme      string
		fenced     bool
		hideResets bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the onboarding flow as a Mermaid diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.WithEnvFile(opts.envFile))
			if err != nil {
				return err
			}

			applyFlags(cfg, opts)

			log := logger.ConfigureFromConfig(cfg, "onboarding", cmd.ErrOrStderr())

			flow := onboarding.DefaultFlow()
			if cfg.FlowPath != "" {
				flow, err = onboarding.LoadFlow(cfg.FlowPath)
				if err != nil {
					return err
				}
			}

			table, err := onboarding.NewTable(flow, nil, log)
			if err != nil {
				return err
			}

			options := visualizer.DefaultOptions().
				WithDirection(direction).
				WithTheme(theme).
				WithFenced(fenced).
				WithFinalStates(onboarding.StateDashboard)

			if hideResets {
				options = options.WithHideEvents(onboarding.EventReset)
			}

			diagram, err := visualizer.GenerateMermaidWithOptions(table, onboarding.StateStart, options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), diagram)

			return err
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "TB", "diagram direction: TB, BT, LR or RL")
	cmd.Flags().StringVar(&theme, "theme", "default", "class theme")
	cmd.Flags().BoolVar(&fenced, "fenced", true, "wrap the diagram in a markdown code fence")
	cmd.Flags().BoolVar(&hideResets, "hide-resets", false, "omit Reset edges")

	return cmd
}
