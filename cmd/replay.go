// =============================================================================
// Statement Order Replay - Replay Command
// =============================================================================
//
// This file defines the 'replay' command, the main command of the tool. It
// parses statements and books every matching credit on the point of sale.
//
// COMMAND USAGE:
//   replay-pos replay <statement|dir>... [flags]
//
// FLAGS:
//   --mode     : api (default from pacing.mode) or automation
//   --delay    : Minimum gap between orders (overrides pacing.delay)
//   --dry-run  : Build and settle documents locally; call nothing
//   --limit    : Replay at most N transactions across all statements
//   --archive  : Move fully replayed statements to <output_dir>/archive
//   plus the statement filter flags of 'parse'
//
// PROCESSING PIPELINE:
//   1. Load configuration and check credentials for the mode
//   2. Discover statement files
//   3. For each statement, in order:
//      a. Parse and filter credits
//      b. Replay them one by one through the runner (paced, sequential)
//      c. Write the outcomes to a result file
//      d. Archive the statement if every transaction succeeded
//   4. Write the error log and run summary
//
// Ctrl-C stops the run between transactions. The order in flight finishes
// and the rest are reported as not attempted.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ginjaninja78/statement-order-replay/internal/automation"
	"github.com/ginjaninja78/statement-order-replay/internal/config"
	"github.com/ginjaninja78/statement-order-replay/internal/order"
	"github.com/ginjaninja78/statement-order-replay/internal/posclient"
	"github.com/ginjaninja78/statement-order-replay/internal/replay"
	"github.com/ginjaninja78/statement-order-replay/internal/report"
	"github.com/ginjaninja78/statement-order-replay/internal/statement"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/ginjaninja78/statement-order-replay/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	replayFlags   statementFlags
	replayMode    string
	replayDelay   time.Duration
	replayDryRun  bool
	replayLimit   int
	replayArchive bool
)

// =============================================================================
// REPLAY COMMAND DEFINITION
// =============================================================================

var replayCmd = &cobra.Command{
	Use:   "replay <statement|dir>...",
	Short: "Book statement credits as settled POS orders",
	Long: `The replay command parses each statement and books every matching credit on
the point of sale, one order at a time with a delay in between.

In api mode each order is created and then settled through the POS API.
In automation mode each order is booked by the automation service driving
the POS web portal.

A failed transaction never stops the run; it is recorded in the error log
in the output directory and the next transaction is attempted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayFlags.register(replayCmd)
	replayCmd.Flags().StringVar(&replayMode, "mode", "", "Replay mode: api or automation (default from config)")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "Minimum gap between orders, e.g. 2s (default from config)")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Build and settle documents locally without calling the POS")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "Replay at most this many transactions (0 = all)")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", false, "Archive statements whose transactions all succeeded")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runReplay(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	replayFlags.apply(cmd, cfg)

	opts, err := cfg.StatementOptions(logger)
	if err != nil {
		return err
	}

	rc, err := cfg.ReplayConfig(replayMode)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("delay") {
		rc.Delay = replayDelay
	}
	rc.DryRun = replayDryRun

	runner, err := newRunner(cfg, rc, logger)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER STATEMENTS
	// =========================================================================

	files, err := utils.DiscoverStatementFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No statement files found.")
		return nil
	}

	fm := utils.NewFileManager(cfg.OutputDir, "")
	if replayArchive && !rc.DryRun {
		fm.ArchiveDir = filepath.Join(cfg.OutputDir, "archive")
	}
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	fmt.Fprintf(out, "=== Statement Order Replay (%s%s) ===\n", rc.Mode, dryRunSuffix(rc.DryRun))
	fmt.Fprintf(out, "Found %d statement(s)\n", len(files))

	// =========================================================================
	// STEP 3: REPLAY EACH STATEMENT
	// =========================================================================

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := utils.RunSummary{StartTime: startTime, Mode: string(rc.Mode), DryRun: rc.DryRun}
	var errorEntries []utils.ErrorLogEntry
	var replayed []types.Transaction
	remaining := replayLimit

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if replayLimit > 0 && remaining <= 0 {
			break
		}

		fileSummary, entries, txns := replayStatement(ctx, out, file, cfg.Statement.Sheet, opts, runner, fm, &remaining, logger)
		summary.Files = append(summary.Files, fileSummary)
		errorEntries = append(errorEntries, entries...)
		replayed = append(replayed, txns...)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: LOGS AND SUMMARY
	// =========================================================================

	errorLog, err := fm.WriteErrorLog(errorEntries)
	if err != nil {
		logger.Error("failed to write error log", "err", err)
	}
	if summaryPath, err := fm.WriteSummaryLog(summary); err != nil {
		logger.Error("failed to write run summary", "err", err)
	} else {
		logger.Debug("wrote run summary", "path", summaryPath)
	}

	fmt.Fprintln(out, "\n=== Replay Complete ===")
	if err := report.WriteSummary(out, report.ComputeStats(replayed), report.Summarize(replayed)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Time elapsed:     %s\n", time.Since(startTime).Round(time.Millisecond))

	if ctx.Err() != nil {
		fmt.Fprintln(out, "\nReplay interrupted; remaining transactions were not attempted.")
	}
	if len(errorEntries) > 0 {
		return fmt.Errorf("%d transaction(s) failed; see %s", len(errorEntries), errorLog)
	}
	return nil
}

// replayStatement parses and replays one statement file.
func replayStatement(
	ctx context.Context,
	out io.Writer,
	file, sheet string,
	opts statement.Options,
	runner *replay.Runner,
	fm *utils.FileManager,
	remaining *int,
	logger *log.Logger,
) (utils.FileSummary, []utils.ErrorLogEntry, []types.Transaction) {
	fs := utils.FileSummary{InputFile: file}
	name := filepath.Base(file)

	result, err := statement.ParseFile(file, sheet, opts)
	if err != nil {
		logger.Error("failed to parse statement", "file", file, "err", err)
		fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
		fs.Error = err.Error()
		return fs, nil, nil
	}

	txns := result.Transactions
	if replayLimit > 0 && len(txns) > *remaining {
		txns = txns[:*remaining]
	}
	*remaining -= len(txns)

	fmt.Fprintf(out, "\n%s: %d transaction(s)\n", name, len(txns))
	if len(txns) == 0 {
		return fs, nil, nil
	}

	outcomes := runner.Run(ctx, txns)

	var entries []utils.ErrorLogEntry
	updated := make([]types.Transaction, 0, len(outcomes))
	for _, o := range outcomes {
		t := o.Transaction
		fs.Total++

		switch {
		case o.Skipped:
			fs.Skipped++
			fmt.Fprintf(out, "  - row %d %s: not attempted\n", t.SourceRow, t.PaidAmount.StringFixed(2))
			continue
		case o.Err != nil:
			fs.Failed++
			fmt.Fprintf(out, "  ✗ row %d %s: %v\n", t.SourceRow, t.PaidAmount.StringFixed(2), o.Err)
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:     time.Now(),
				FileName:      name,
				Mode:          string(o.Mode),
				TransactionID: t.ID,
				SourceRow:     t.SourceRow,
				Date:          t.Date,
				Amount:        t.PaidAmount.StringFixed(2),
				ErrorMessage:  o.Err.Error(),
			})
		default:
			fs.Processed++
			fmt.Fprintf(out, "  ✓ row %d %s -> %s\n", t.SourceRow, t.PaidAmount.StringFixed(2), outcomeRef(o))
		}
		updated = append(updated, t)
	}

	resultName := fm.GenerateOutputFileName("replay_{original}_{timestamp}_{short}",
		map[string]string{"original": strings.TrimSuffix(name, filepath.Ext(name))}, ".json")
	if path, err := fm.WriteJSON(resultName, outcomes); err != nil {
		logger.Error("failed to write replay results", "file", file, "err", err)
	} else {
		logger.Debug("wrote replay results", "path", path)
	}

	allDone := fs.Failed == 0 && fs.Skipped == 0 && len(txns) == len(result.Transactions)
	if fm.ArchiveDir != "" && allDone {
		archived, err := fm.ArchiveStatement(file)
		if err != nil {
			logger.Error("failed to archive statement", "file", file, "err", err)
		} else {
			fs.ArchivePath = archived
		}
	}

	return fs, entries, updated
}

// newRunner wires the runner's collaborators for rc.Mode.
func newRunner(cfg *config.MainConfig, rc replay.Config, logger *log.Logger) (*replay.Runner, error) {
	if !rc.DryRun {
		if err := cfg.ValidateReplay(rc.Mode); err != nil {
			return nil, err
		}
	}

	deps := replay.Dependencies{Logger: logger}

	switch rc.Mode {
	case replay.ModeAutomation:
		if !rc.DryRun {
			exec, err := automation.NewHTTPExecutor(cfg.Automation.ServiceURL)
			if err != nil {
				return nil, err
			}
			deps.Executor = exec
		}
	default:
		orderCfg, err := cfg.OrderConfig()
		if err != nil {
			return nil, err
		}
		builder, err := order.NewBuilder(orderCfg)
		if err != nil {
			return nil, err
		}
		deps.Builder = builder

		if !rc.DryRun {
			client, err := posclient.NewClient(cfg.ClientConfig())
			if err != nil {
				return nil, err
			}
			deps.Client = client
		}
	}

	return replay.NewRunner(rc, deps)
}

// outcomeRef names what a successful outcome produced.
func outcomeRef(o replay.Outcome) string {
	switch {
	case o.DryRun && o.Document != nil:
		return fmt.Sprintf("dry run %s total %s", o.Document.Number, o.Document.Total.StringFixed(2))
	case o.DryRun:
		return "dry run"
	case o.ServerID != "":
		return "order " + o.ServerID
	case o.OrderID != "":
		return "order " + o.OrderID
	default:
		return "booked"
	}
}

func dryRunSuffix(dryRun bool) string {
	if dryRun {
		return ", dry run"
	}
	return ""
}
