package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/memex-cli/internal/httpserver"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
)

// buildHTTPServerCmd serves the documented HTTP surface (§5): streaming
// /exec/{run,replay,resume}, /health, and the /api/v1 memory
// passthroughs, until SIGINT/SIGTERM triggers a graceful shutdown.
func buildHTTPServerCmd(deps *cliDeps) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http-server",
		Short: "Serve the memex HTTP collaborator surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := deps.logger()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, *deps.configPath, logger.Slog())
			if err != nil {
				return err
			}

			cfg := httpserver.Config{
				Addr:        addr,
				Coordinator: rt.coordinatorConfig(),
				Memory:      rt.Memory,
				Logger:      logger.Slog(),
			}
			if cfg.Addr == "" {
				cfg.Addr = rt.Config.HTTPServer.Addr
			}

			srv := httpserver.New(cfg)
			if err := srv.ListenAndServe(ctx); err != nil {
				return kernelerr.New(kernelerr.Io, "http server", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured http_server.addr)")
	return cmd
}
