package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/creatorops/scout/config"
	"github.com/creatorops/scout/internal/ops"
	"github.com/creatorops/scout/internal/store"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server (health and metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Telemetry.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.New(os.Stdout, "[SERVE] ", log.LstdFlags)

			var pinger ops.Pinger
			st, err := store.New(ctx, cfg.Storage.Postgres)
			if err != nil {
				logger.Printf("warn: postgres unavailable, health reports liveness only: %v", err)
			} else {
				pinger = st
				defer st.Close()
			}

			server := ops.NewServer(pinger)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(addr) }()
			logger.Printf("ops server listening on %s", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config directory (default is .)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
