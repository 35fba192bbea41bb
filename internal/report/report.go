// =============================================================================
// Statement Order Replay - Report
// =============================================================================
//
// Processing statistics and the sales summary over a set of transactions,
// plus plain-text rendering for the CLI.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// STATISTICS
// =============================================================================

// Stats counts transactions by outcome.
type Stats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`

	// Adjustments is the number of transactions whose paid amount differs
	// from the expected cost.
	Adjustments int `json:"adjustments"`
}

// ComputeStats counts txns by status.
func ComputeStats(txns []types.Transaction) Stats {
	s := Stats{Total: len(txns)}
	for _, t := range txns {
		switch t.Status {
		case types.StatusSuccess:
			s.Processed++
		case types.StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
		if t.HasAdjustment() {
			s.Adjustments++
		}
	}
	return s
}

// SuccessRate is Processed / Total as a percentage; zero for no transactions.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// =============================================================================
// SALES SUMMARY
// =============================================================================

// SalesSummary totals money and items across transactions.
type SalesSummary struct {
	// Revenue is the sum of paid amounts.
	Revenue decimal.Decimal `json:"revenue"`

	// ExpectedTotal is the sum of expected costs.
	ExpectedTotal decimal.Decimal `json:"expectedTotal"`

	// TotalAdjustment is Revenue - ExpectedTotal.
	TotalAdjustment decimal.Decimal `json:"totalAdjustment"`

	// Items holds the unit count per item kind.
	Items menu.Composition `json:"items"`

	TotalItems int `json:"totalItems"`
}

// Summarize totals all transactions regardless of status.
func Summarize(txns []types.Transaction) SalesSummary {
	s := SalesSummary{
		Revenue:         decimal.Zero,
		ExpectedTotal:   decimal.Zero,
		TotalAdjustment: decimal.Zero,
	}
	for _, t := range txns {
		s.Revenue = s.Revenue.Add(t.PaidAmount)
		s.ExpectedTotal = s.ExpectedTotal.Add(t.ExpectedCost)
		s.TotalAdjustment = s.TotalAdjustment.Add(t.Adjustment)

		s.Items.FullPlate += t.FullPlate
		s.Items.HalfPlate += t.HalfPlate
		s.Items.Water += t.Water
		s.Items.Packing += t.Packing
	}
	s.TotalItems = s.Items.Items()
	return s
}

// =============================================================================
// RENDERING
// =============================================================================

// WriteTransactions prints one row per transaction.
func WriteTransactions(w io.Writer, txns []types.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ROW\tDATE\tPAID\tFULL\tHALF\tWATER\tPACK\tEXPECTED\tADJ\tSTATUS\tDETAILS")
	for _, t := range txns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			t.SourceRow,
			t.Date,
			t.PaidAmount.StringFixed(2),
			t.FullPlate,
			t.HalfPlate,
			t.Water,
			t.Packing,
			t.ExpectedCost.StringFixed(2),
			t.Adjustment.StringFixed(2),
			t.Status,
			truncate(t.Details, 40),
		)
	}
	return tw.Flush()
}

// WriteSummary prints the statistics and the sales summary.
func WriteSummary(w io.Writer, stats Stats, sales SalesSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Transactions:\t%d\n", stats.Total)
	fmt.Fprintf(tw, "Processed:\t%d\n", stats.Processed)
	fmt.Fprintf(tw, "Failed:\t%d\n", stats.Failed)
	if stats.Pending > 0 {
		fmt.Fprintf(tw, "Pending:\t%d\n", stats.Pending)
	}
	fmt.Fprintf(tw, "With adjustment:\t%d\n", stats.Adjustments)
	fmt.Fprintf(tw, "Revenue:\t%s\n", sales.Revenue.StringFixed(2))
	fmt.Fprintf(tw, "Expected total:\t%s\n", sales.ExpectedTotal.StringFixed(2))
	fmt.Fprintf(tw, "Total adjustment:\t%s\n", sales.TotalAdjustment.StringFixed(2))
	for _, kind := range menu.Kinds() {
		fmt.Fprintf(tw, "%s:\t%d\n", kind.Label(), sales.Items.Quantity(kind))
	}
	fmt.Fprintf(tw, "Total items:\t%d\n", sales.TotalItems)

	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
