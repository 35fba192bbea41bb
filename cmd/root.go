// =============================================================================
// Statement Order Replay - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (replay-pos)
//   ├── parseCmd   (replay-pos parse)
//   ├── replayCmd  (replay-pos replay)
//   ├── serveCmd   (replay-pos serve)
//   └── versionCmd (replay-pos version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   call setup() to load the configuration and create the logger.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/ginjaninja78/statement-order-replay/internal/config"
	"github.com/ginjaninja78/statement-order-replay/internal/logging"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "replay-pos",
	Short: "Statement Order Replay - Book bank statement credits as POS orders",
	Long: `Statement Order Replay reads a bank statement export, picks out the credits
paid to one merchant, infers the menu items behind each amount and books them
as settled orders on the point of sale.

Key Features:
  - Header detection for XLSX and CSV statement exports
  - Greedy amount decomposition with overpayment absorption
  - Order creation and settlement through the POS API
  - Browser automation fallback through an automation service
  - Paced, sequential replay that never books a transaction twice per run

Example Usage:
  replay-pos parse april.xlsx                 # Show what would be booked
  replay-pos replay april.xlsx --dry-run      # Build documents without calling the POS
  replay-pos replay ./statements --mode api   # Book every statement in a directory
  replay-pos serve                            # Start the HTTP API`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// Persistent flags are available to this command and all subcommands.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// setup loads the configuration and creates the logger.
//
// A missing config.yaml is not an error unless --config was given
// explicitly; the built-in defaults are used instead.
func setup(cmd *cobra.Command) (*config.MainConfig, *log.Logger, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(config.DefaultEnvFile)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, level)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
