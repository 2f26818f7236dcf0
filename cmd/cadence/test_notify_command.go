package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cadence/internal/webhooks"
)

func newTestNotifyCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify CLIENT_ID",
		Short: "Send a test event to the client's webhook subscriptions",
		Long: "Send a test event to the client's webhook subscriptions. Only subscriptions " +
			"without an event filter (or with a \"*\" entry) receive it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withProgram(func(ctx context.Context, env *programEnv) error {
				if !env.cfg.Webhooks.Enabled {
					fmt.Fprintln(cmd.OutOrStdout(), "Webhook delivery is disabled in configuration")
					return nil
				}
				if _, err := env.store.GetClient(ctx, args[0]); err != nil {
					return err
				}
				err := env.publisher.Publish(ctx, args[0], webhooks.Event("cadence.test"), webhooks.Payload{
					"message": "test notification",
					"sentAt":  time.Now().UTC().Format(time.RFC3339),
				})
				if err != nil {
					return err
				}
				// Deliveries run asynchronously; Close on the way out waits
				// for them to drain.
				fmt.Fprintln(cmd.OutOrStdout(), "Test event dispatched")
				return nil
			})
		},
	}
}
