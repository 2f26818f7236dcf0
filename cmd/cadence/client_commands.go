package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cadence/internal/program"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Manage program clients",
	}

	clientCmd.AddCommand(newClientAddCommand(ctx))
	clientCmd.AddCommand(newClientListCommand(ctx))
	clientCmd.AddCommand(newClientProgressCommand(ctx))
	clientCmd.AddCommand(newClientSignCommand(ctx))
	clientCmd.AddCommand(newClientActivityCommand(ctx))

	return clientCmd
}

func newClientAddCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		email    string
		niche    string
		audience string
		goals    string
		summary  string
		contract bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Enroll a new client",
		Long:  "Enroll a new client. Stage 1 unlocks immediately; stages 2-8 stay locked until the preceding stage completes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				client := &program.Client{
					Name:            args[0],
					Email:           email,
					Niche:           niche,
					Audience:        audience,
					Goals:           goals,
					BusinessSummary: summary,
					ContractSigned:  contract,
				}
				if err := env.store.CreateClient(ctx, client); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Enrolled %s (stage 1 of %d active)\n", client.Name, program.StageCount)
				fmt.Fprintf(out, "Client ID: %s\n", client.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Client contact email")
	cmd.Flags().StringVar(&niche, "niche", "", "Business niche")
	cmd.Flags().StringVar(&audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&goals, "goals", "", "Program goals")
	cmd.Flags().StringVar(&summary, "summary", "", "Business summary used in generation prompts")
	cmd.Flags().BoolVar(&contract, "contract-signed", false, "Mark the contract as signed")
	return cmd
}

func newClientListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				clients, err := env.store.ListClients(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(clients) == 0 {
					fmt.Fprintln(out, "No clients enrolled")
					return nil
				}
				rows := make([][]string, 0, len(clients))
				for _, client := range clients {
					rows = append(rows, []string{
						client.ID,
						client.Name,
						orDash(client.Email),
						strconv.Itoa(client.CurrentStage),
						yesNo(client.ContractSigned),
						displayTimeValue(client.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "NAME", "EMAIL", "STAGE", "CONTRACT", "ENROLLED"},
					rows, 4,
				))
				return nil
			})
		},
	}
}

func newClientProgressCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress CLIENT_ID",
		Short: "Show a client's stage table and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				snapshot, err := env.service.Progress(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintf(out, "%s  (stage %d of %d", snapshot.Client.Name,
					snapshot.Progress.CurrentStage, program.StageCount)
				if snapshot.Progress.Completed {
					fmt.Fprint(out, ", program complete")
				}
				fmt.Fprintln(out, ")")

				stageRows := make([][]string, 0, len(snapshot.Progress.Stages))
				for _, stage := range snapshot.Progress.Stages {
					stageRows = append(stageRows, []string{
						strconv.Itoa(stage.Stage),
						stage.Theme,
						colorizeStatus(stage.Status, colorize),
						orDash(stage.UnlockedAt),
						orDash(stage.CompletedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"STAGE", "THEME", "STATUS", "UNLOCKED", "COMPLETED"},
					stageRows, 1,
				))

				if len(snapshot.Documents) == 0 {
					return nil
				}
				docRows := make([][]string, 0, len(snapshot.Documents))
				for _, doc := range snapshot.Documents {
					docRows = append(docRows, []string{
						strconv.Itoa(doc.Stage),
						strconv.Itoa(doc.Slot),
						doc.Name,
						colorizeStatus(doc.Status, colorize),
						strconv.Itoa(doc.Version),
						orDash(doc.RevisionNotes),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"STAGE", "SLOT", "DOCUMENT", "STATUS", "VERSION", "NOTES"},
					docRows, 1, 2, 5,
				))
				return nil
			})
		},
	}
}

func newClientSignCommand(cmdCtx *commandContext) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "sign CLIENT_ID",
		Short: "Record the client contract as signed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if err := env.store.SetContractSigned(ctx, args[0], !revoke); err != nil {
					return err
				}
				if revoke {
					fmt.Fprintln(cmd.OutOrStdout(), "Contract marked unsigned")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Contract marked signed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Mark the contract unsigned instead")
	return cmd
}

func newClientActivityCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		emailsSent      int
		emailsOpened    int
		milestonesDone  int
		milestonesTotal int
	)

	cmd := &cobra.Command{
		Use:   "activity CLIENT_ID",
		Short: "Record engagement counters used by the scoring engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if _, err := env.store.GetClient(ctx, args[0]); err != nil {
					return err
				}
				now := time.Now().UTC()
				window := &program.ActivityWindow{
					ClientID:        args[0],
					EmailsSent:      emailsSent,
					EmailsOpened:    emailsOpened,
					MilestonesDone:  milestonesDone,
					MilestonesTotal: milestonesTotal,
					LastActivityAt:  &now,
				}
				if err := env.store.RecordActivity(ctx, window); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Activity recorded")
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&emailsSent, "emails-sent", 0, "Emails sent in the current window")
	cmd.Flags().IntVar(&emailsOpened, "emails-opened", 0, "Emails opened in the current window")
	cmd.Flags().IntVar(&milestonesDone, "milestones-done", 0, "Milestones completed to date")
	cmd.Flags().IntVar(&milestonesTotal, "milestones-total", 0, "Milestones scheduled to date")
	return cmd
}
