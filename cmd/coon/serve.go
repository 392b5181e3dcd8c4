package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coon/internal/config"
	httpserver "github.com/fyrsmithlabs/coon/internal/http"
	"github.com/fyrsmithlabs/coon/internal/registry"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compression API over HTTP",
		Long: `Serve compress, decompress, analyze and validate endpoints under /v1,
with /health and Prometheus /metrics. The server stops gracefully on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return c.serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func (c *cli) serve(ctx context.Context, cfg config.ServerConfig) error {
	a := c.app
	srv, err := httpserver.NewServer(a.svc, cfg,
		httpserver.WithTelemetry(a.tel),
		httpserver.WithLogger(a.logger.Named("http")),
		httpserver.WithDefaults(a.defaults()),
		httpserver.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if stop, err := c.watchRegistry(ctx); err != nil {
		a.logger.Warn(ctx, "registry watch disabled", zap.Error(err))
	} else {
		defer stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// watchRegistry reloads the registry file on change when registry.watch is
// set. The returned func stops the watcher.
func (c *cli) watchRegistry(ctx context.Context) (func(), error) {
	rc := c.app.cfg.Registry
	if !rc.Watch || rc.Path == "" {
		return func() {}, nil
	}
	if isTOML(rc.Path) {
		return nil, fmt.Errorf("registry %s is TOML; only JSON files are watched", rc.Path)
	}
	w, err := registry.NewWatcher(c.app.reg, rc.Path, c.app.logger.Named("registry").Underlying())
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	c.app.logger.Info(ctx, "watching registry", zap.String("path", rc.Path))
	return w.Stop, nil
}
