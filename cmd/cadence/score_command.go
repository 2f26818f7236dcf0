package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"cadence/internal/api"
)

func newScoreCommand(cmdCtx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "score CLIENT_ID",
		Short: "Recalculate client health and launch-readiness scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" && kind != "health" && kind != "readiness" {
				return fmt.Errorf("unknown score kind %q (expected health or readiness)", kind)
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				if kind == "" || kind == "health" {
					score, err := env.service.HealthScore(ctx, args[0])
					if err != nil {
						return err
					}
					printScore(out, score, colorize)
				}
				if kind == "" || kind == "readiness" {
					score, err := env.service.LaunchReadiness(ctx, args[0])
					if err != nil {
						return err
					}
					printScore(out, score, colorize)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Limit to one score kind: health or readiness")
	return cmd
}

func printScore(out io.Writer, score *api.ScoreView, colorize bool) {
	fmt.Fprintf(out, "%s: %.2f %s", score.Kind, score.Score, colorizeStatus(score.Status, colorize))
	if score.Delta != 0 {
		fmt.Fprintf(out, " (%+.2f)", score.Delta)
	}
	fmt.Fprintln(out)

	names := make([]string, 0, len(score.Components))
	for name := range score.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%.1f", score.Components[name])})
	}
	fmt.Fprintln(out, renderTable([]string{"COMPONENT", "SCORE"}, rows, 2))

	for _, blocker := range score.Blockers {
		fmt.Fprintf(out, "  blocker: %s\n", blocker)
	}
	if score.Stuck {
		fmt.Fprintf(out, "  stuck: %s\n", score.StuckReason)
	}
}
