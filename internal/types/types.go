// =============================================================================
// Statement Order Replay - Shared Types
// =============================================================================
//
// This package contains types shared across modules to avoid import cycles.
// Types defined here are used by:
//   - statement (produces transactions)
//   - order     (builds documents from transactions)
//   - replay    (updates transaction status)
//   - report, api
//
// =============================================================================

package types

import (
	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION STATUS
// =============================================================================

// Status is the processing state of a transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// Transaction is one credit row from a bank statement, normalized and paired
// with the order composition inferred from its amount.
//
// Only Status and ErrorMessage change after parsing.
type Transaction struct {
	// ID is unique within a single parse run.
	ID string `json:"id"`

	// Date and ValueDate are the raw cell strings from the statement.
	Date      string `json:"date"`
	ValueDate string `json:"valueDate"`

	// Details is the raw narration text.
	Details string `json:"details"`

	// PaidAmount is the credited amount.
	PaidAmount decimal.Decimal `json:"paidAmount"`

	// Composition holds the item quantities after overpayment absorption.
	menu.Composition

	// ExpectedCost is the cost of the final composition.
	ExpectedCost decimal.Decimal `json:"expectedCost"`

	// Adjustment is PaidAmount - ExpectedCost.
	Adjustment decimal.Decimal `json:"adjustment"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// SourceRow is the 1-based row number in the source sheet.
	SourceRow int `json:"sourceRow,omitempty"`
}

// HasAdjustment reports whether the paid amount differs from the expected cost.
func (t Transaction) HasAdjustment() bool {
	return !t.Adjustment.IsZero()
}

// MarkFailed records a failed order-creation attempt.
func (t *Transaction) MarkFailed(msg string) {
	t.Status = StatusFailed
	t.ErrorMessage = msg
}

// MarkSucceeded records a successful order-creation attempt.
func (t *Transaction) MarkSucceeded() {
	t.Status = StatusSuccess
	t.ErrorMessage = ""
}
