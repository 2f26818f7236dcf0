package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cadence/internal/program"
)

func newWebhookCommand(ctx *commandContext) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage webhook subscriptions",
	}

	webhookCmd.AddCommand(newWebhookAddCommand(ctx))
	webhookCmd.AddCommand(newWebhookListCommand(ctx))
	webhookCmd.AddCommand(newWebhookRemoveCommand(ctx))
	webhookCmd.AddCommand(newWebhookReactivateCommand(ctx))

	return webhookCmd
}

func newWebhookAddCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		events []string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "add CLIENT_ID URL",
		Short: "Subscribe an endpoint to client events",
		Long: "Subscribe an endpoint to client events. Without --events the subscription " +
			"receives every event; \"*\" works as an explicit wildcard.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if _, err := env.store.GetClient(ctx, args[0]); err != nil {
					return err
				}
				sub := &program.WebhookSubscription{
					ClientID: args[0],
					URL:      args[1],
					Events:   events,
					Secret:   secret,
				}
				if err := env.store.CreateSubscription(ctx, sub); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subscription ID: %s\n", sub.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&events, "events", nil, "Event names to deliver (default: all)")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret used to sign deliveries")
	return cmd
}

func newWebhookListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list CLIENT_ID",
		Short: "List active subscriptions for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				subs, err := env.store.ActiveSubscriptions(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(subs) == 0 {
					fmt.Fprintln(out, "No active subscriptions")
					return nil
				}
				rows := make([][]string, 0, len(subs))
				for _, sub := range subs {
					eventList := "*"
					if len(sub.Events) > 0 {
						eventList = strings.Join(sub.Events, ",")
					}
					rows = append(rows, []string{
						sub.ID,
						sub.URL,
						eventList,
						strconv.Itoa(sub.FailureCount),
						displayTime(sub.LastTriggeredAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "URL", "EVENTS", "FAILURES", "LAST DELIVERY"},
					rows, 4,
				))
				return nil
			})
		},
	}
}

func newWebhookRemoveCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove SUBSCRIPTION_ID",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if err := env.store.DeleteSubscription(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Subscription removed")
				return nil
			})
		},
	}
}

func newWebhookReactivateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate SUBSCRIPTION_ID",
		Short: "Re-enable a subscription disabled by delivery failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if err := env.store.ReactivateSubscription(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Subscription reactivated")
				return nil
			})
		},
	}
}
