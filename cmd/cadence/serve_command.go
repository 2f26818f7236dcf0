package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cadence/internal/daemon"
	"cadence/internal/logging"
	"cadence/internal/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cadence daemon",
		Long:  "Run the daemon: HTTP API, webhook delivery, and the periodic score sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			s, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			d, err := daemon.New(cfg, s, logger)
			if err != nil {
				_ = s.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			if addr := d.Addr(); addr != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "cadence daemon listening on %s\n", addr)
			}

			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}
}
