// =============================================================================
// Statement Order Replay - Parse Command
// =============================================================================
//
// This file defines the 'parse' command, which reads statements and prints
// the transactions that would be replayed, without contacting the POS.
//
// COMMAND USAGE:
//   replay-pos parse <statement|dir>... [flags]
//
// FLAGS:
//   --merchant        : Merchant keyword (overrides statement.merchant_keyword)
//   --match           : suffix or contains
//   --case-sensitive  : Case-sensitive merchant match
//   --from, --to      : Inclusive date range, YYYY-MM-DD
//   --sheet           : Worksheet name for workbooks
//   --json            : Print JSON instead of tables
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ginjaninja78/statement-order-replay/internal/config"
	"github.com/ginjaninja78/statement-order-replay/internal/report"
	"github.com/ginjaninja78/statement-order-replay/internal/statement"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/ginjaninja78/statement-order-replay/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// STATEMENT FLAGS
// =============================================================================

// statementFlags are the filter flags shared by parse and replay.
type statementFlags struct {
	merchant      string
	match         string
	caseSensitive bool
	from          string
	to            string
	sheet         string
}

func (f *statementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.merchant, "merchant", "", "Merchant keyword matched against the narration")
	cmd.Flags().StringVar(&f.match, "match", "", "Merchant match mode: suffix or contains")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "Match the merchant keyword case-sensitively")
	cmd.Flags().StringVar(&f.from, "from", "", "First statement date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last statement date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Worksheet to read from workbooks (default: first sheet)")
}

// apply copies the flags that were set on the command line into cfg.
func (f *statementFlags) apply(cmd *cobra.Command, cfg *config.MainConfig) {
	if cmd.Flags().Changed("merchant") {
		cfg.Statement.MerchantKeyword = f.merchant
	}
	if cmd.Flags().Changed("match") {
		cfg.Statement.MatchMode = f.match
	}
	if cmd.Flags().Changed("case-sensitive") {
		cfg.Statement.CaseSensitive = f.caseSensitive
	}
	if cmd.Flags().Changed("from") {
		cfg.Statement.StartDate = f.from
	}
	if cmd.Flags().Changed("to") {
		cfg.Statement.EndDate = f.to
	}
	if cmd.Flags().Changed("sheet") {
		cfg.Statement.Sheet = f.sheet
	}
}

// =============================================================================
// PARSE COMMAND DEFINITION
// =============================================================================

var (
	parseFlags statementFlags
	parseJSON  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <statement|dir>...",
	Short: "Show the transactions a statement would replay",
	Long: `The parse command reads each statement, applies the merchant and date filters
and prints the inferred order composition of every matching credit, followed
by a sales summary. Nothing is sent to the POS.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseFlags.register(parseCmd)
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print JSON instead of tables")
}

// parsedFile is the JSON output for one statement.
type parsedFile struct {
	File         string              `json:"file"`
	Error        string              `json:"error,omitempty"`
	Transactions []types.Transaction `json:"transactions"`
	Stats        statement.Stats     `json:"stats"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	parseFlags.apply(cmd, cfg)

	opts, err := cfg.StatementOptions(logger)
	if err != nil {
		return err
	}

	files, err := utils.DiscoverStatementFiles(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No statement files found.")
		return nil
	}

	var all []types.Transaction
	var parsed []parsedFile
	failed := 0

	for _, file := range files {
		result, err := statement.ParseFile(file, cfg.Statement.Sheet, opts)
		if err != nil {
			failed++
			logger.Error("failed to parse statement", "file", file, "err", err)
			parsed = append(parsed, parsedFile{File: file, Error: err.Error(), Transactions: []types.Transaction{}})
			continue
		}

		logger.Debug("parsed statement",
			"file", file,
			"header_row", result.HeaderRow,
			"rows", result.Stats.RowsScanned,
			"skipped", result.Stats.Skipped,
			"filtered", result.Stats.Filtered,
		)

		all = append(all, result.Transactions...)
		parsed = append(parsed, parsedFile{File: file, Transactions: result.Transactions, Stats: result.Stats})

		if !parseJSON {
			fmt.Fprintf(out, "\n=== %s: %d transaction(s) ===\n", filepath.Base(file), len(result.Transactions))
			if len(result.Transactions) > 0 {
				if err := report.WriteTransactions(out, result.Transactions); err != nil {
					return err
				}
			}
		}
	}

	if parseJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Files   []parsedFile        `json:"files"`
			Stats   report.Stats        `json:"stats"`
			Summary report.SalesSummary `json:"summary"`
		}{parsed, report.ComputeStats(all), report.Summarize(all)}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, "\n=== Summary ===")
		if err := report.WriteSummary(out, report.ComputeStats(all), report.Summarize(all)); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d statement(s) could not be parsed", failed, len(files))
	}
	return nil
}
