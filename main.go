// =============================================================================
// Statement Order Replay - Main Entry Point
// =============================================================================
//
// This is the main entry point for the replay-pos CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   replay-pos parse     - Show the transactions a statement would replay
//   replay-pos replay    - Book statement credits as settled POS orders
//   replay-pos serve     - Start the HTTP API
//   replay-pos version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/                : CLI command definitions (Cobra)
//   - internal/statement  : Statement reading and header detection
//   - internal/menu       : Price table and amount decomposition
//   - internal/order      : POS order documents and settlement
//   - internal/posclient  : POS HTTP API client
//   - internal/automation : Browser automation boundary
//   - internal/replay     : Paced, sequential batch runner
//   - internal/api        : HTTP API (Fiber)
//   - pkg/utils           : File discovery, archives, logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/statement-order-replay/cmd"
)

func main() {
	cmd.Execute()
}
