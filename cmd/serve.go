// =============================================================================
// Statement Order Replay - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which exposes parsing and replay
// over HTTP.
//
// COMMAND USAGE:
//   replay-pos serve [flags]
//
// FLAGS:
//   --addr     : Listen address (overrides server.addr)
//   --dry-run  : Enable every mode without contacting the POS
//
// ENDPOINTS:
//   GET  /api/health      : Health check and enabled modes
//   POST /api/statements  : Parse an uploaded statement
//   POST /api/orders      : Replay a batch of transactions
//
// A replay mode is enabled only when its credentials are configured.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/api"
	"github.com/ginjaninja78/statement-order-replay/internal/replay"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	serveAddr   string
	serveDryRun bool
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 30 * time.Second

// =============================================================================
// SERVE COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `The serve command starts an HTTP server for parsing statements and
replaying transactions.

Only one replay batch runs at a time; concurrent requests to /api/orders
wait for the batch ahead of them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, e.g. :8080 (default from config)")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false, "Enable all modes without contacting the POS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	opts, err := cfg.StatementOptions(logger)
	if err != nil {
		return err
	}

	// =========================================================================
	// BUILD RUNNERS
	// =========================================================================

	runners := make(map[replay.Mode]*replay.Runner)
	for _, mode := range []replay.Mode{replay.ModeAPI, replay.ModeAutomation} {
		rc, err := cfg.ReplayConfig(string(mode))
		if err != nil {
			return err
		}
		rc.DryRun = serveDryRun

		runner, err := newRunner(cfg, rc, logger)
		if err != nil {
			logger.Warn("replay mode disabled", "mode", mode, "reason", err)
			continue
		}
		runners[mode] = runner
	}
	if len(runners) == 0 {
		logger.Warn("no replay mode is configured; only parsing is available")
	}

	app := api.NewApp(&api.Handler{
		Parse:   opts,
		Runners: runners,
		Logger:  logger,
	})

	// =========================================================================
	// START AND SHUT DOWN
	// =========================================================================

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "dry_run", serveDryRun)
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
