package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/onboarding/persist"
	"github.com/spf13/cobra"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted onboarding state",
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

			if asJSON {
				return writeSnapshotJSON(cmd.OutOrStdout(), app.machine.Snapshot())
			}

			return writeStatus(cmd.OutOrStdout(), app.machine.State(), app.machine.Progress(ctx), app.machine.Context())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the persisted document instead of a summary")

	return cmd
}

func writeSnapshotJSON(out io.Writer, snapshot onboarding.Snapshot) error {
	data, err := persist.Encode(snapshot)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	err = json.Indent(&buf, data, "", "  ")
	if err != nil {
		return err
	}

	buf.WriteByte('\n')

	_, err = buf.WriteTo(out)

	return err
}

func writeStatus(out io.Writer, state onboarding.State, progress onboarding.Progress, smCtx *onboarding.Context) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "User\t%s\n", orDash(smCtx.UserID))
	fmt.Fprintf(tw, "State\t%s\n", state.Name())
	fmt.Fprintf(tw, "Step\t%d of %d (%d%%)\n", progress.CurrentStep, progress.TotalSteps, progress.Percentage)
	fmt.Fprintf(tw, "Organization\t%s\n", orDash(smCtx.OrganizationID))
	fmt.Fprintf(tw, "Completed\t%s\n", joinSteps(progress.CompletedSteps))
	fmt.Fprintf(tw, "Skipped\t%s\n", joinSteps(progress.SkippedSteps))

	if smCtx.StartedAt != nil {
		fmt.Fprintf(tw, "Started\t%s\n", smCtx.StartedAt.Format(time.RFC3339))
	}

	if smCtx.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed at\t%s\n", smCtx.CompletedAt.Format(time.RFC3339))
	}

	for _, entry := range smCtx.Errors {
		fmt.Fprintf(tw, "Error\t%s (%s)\n", entry.Message, entry.State)
	}

	return tw.Flush()
}

func joinSteps(steps []onboarding.Step) string {
	if len(steps) == 0 {
		return "-"
	}

	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.String()
	}

	return strings.Join(names, ", ")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}

	return value
}
