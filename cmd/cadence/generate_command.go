package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cadence/internal/api"
)

func newGenerateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate CLIENT_ID STAGE [SLOT]",
		Short: "Generate stage documents with the configured LLM provider",
		Long: "Generate all five documents for a stage, or a single slot when SLOT is given. " +
			"Regenerating an existing slot produces a new version and resets its review state.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			var slot int
			if len(args) == 3 {
				if slot, err = parseSlotArg(args[2]); err != nil {
					return err
				}
			}

			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if env.providerErr != nil {
					return fmt.Errorf("llm provider unavailable: %w", env.providerErr)
				}
				out := cmd.OutOrStdout()

				if slot > 0 {
					doc, err := env.service.GenerateDocument(ctx, args[0], stage, slot)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Generated %s (stage %d slot %d, version %d, %d tokens)\n",
						doc.Name, doc.Stage, doc.Slot, doc.Version, doc.TokensUsed)
					return nil
				}

				result, err := env.service.GenerateStage(ctx, args[0], stage)
				if err != nil {
					return err
				}
				printGenerationResult(out, result)
				return nil
			})
		},
	}
}

func printGenerationResult(out io.Writer, result *api.GenerationView) {
	fmt.Fprintf(out, "Stage %d: %d of %d documents generated (%d tokens)\n",
		result.Stage, len(result.Succeeded), result.TotalRequested, result.TokensUsed)
	if len(result.Failed) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Failed))
	for _, failure := range result.Failed {
		rows = append(rows, []string{
			strconv.Itoa(failure.Slot),
			failure.Name,
			failure.Error,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"SLOT", "DOCUMENT", "ERROR"}, rows, 1))
}

func newUnlockCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock CLIENT_ID STAGE",
		Short: "Manually unlock a stage",
		Long:  "Manually unlock a stage. The preceding stage must already be completed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if err := env.service.UnlockStage(ctx, args[0], stage); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stage %d unlocked\n", stage)
				return nil
			})
		},
	}
}
