// Package httpd implements the HTTP server command.
package httpd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomirror/cmd/common"
	"github.com/jonesrussell/gomirror/internal/api"
	"github.com/jonesrussell/gomirror/internal/job"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Command returns the httpd command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the HTTP API server",
		Long: `Serves the mirror API. When schedule.enabled is set, the cron-driven
re-mirror scheduler runs alongside the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewDeps(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			return run(cmd.Context(), deps)
		},
	}
}

// run starts the server (and scheduler, when enabled) and blocks until
// interrupted.
func run(ctx context.Context, deps *common.Deps) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(deps.Config.Server.Address, deps.Batches, deps.Quota, deps.Stats, deps.Logger)

	var mirrorScheduler *job.MirrorScheduler
	if deps.Config.Schedule.Enabled {
		mirrorScheduler = job.NewMirrorScheduler(deps.Batches, deps.Logger, deps.Config.Schedule.Sources)
		if err := mirrorScheduler.Start(ctx); err != nil {
			return fmt.Errorf("start mirror scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	deps.Logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if mirrorScheduler != nil {
		mirrorScheduler.Stop()
	}

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}

	return nil
}
