package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/shopspring/decimal"
)

func txn(paid int64, status types.Status) types.Transaction {
	b := menu.Decompose(decimal.NewFromInt(paid), menu.DefaultPriceTable())
	return types.Transaction{
		ID:           "t",
		Date:         "01/04/2024",
		Details:      "UPI/SHAMBHU",
		PaidAmount:   decimal.NewFromInt(paid),
		Composition:  b.Composition,
		ExpectedCost: b.ExpectedCost,
		Adjustment:   b.Adjustment,
		Status:       status,
	}
}

func TestComputeStats(t *testing.T) {
	txns := []types.Transaction{
		txn(180, types.StatusSuccess), // adjustment 2
		txn(109, types.StatusSuccess),
		txn(250, types.StatusFailed), // adjustment 3
		txn(89, types.StatusPending),
	}

	got := ComputeStats(txns)
	want := Stats{Total: 4, Processed: 2, Failed: 1, Pending: 1, Adjustments: 2}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}
	if rate := got.SuccessRate(); rate != 50 {
		t.Errorf("SuccessRate() = %v, want 50", rate)
	}
	if rate := (Stats{}).SuccessRate(); rate != 0 {
		t.Errorf("empty SuccessRate() = %v, want 0", rate)
	}
}

func TestSummarize(t *testing.T) {
	txns := []types.Transaction{
		txn(180, types.StatusSuccess), // 2 full
		txn(109, types.StatusSuccess), // 1 full, 2 water
		txn(250, types.StatusFailed),  // 2 full, 1 half, 2 water
	}

	s := Summarize(txns)

	if !s.Revenue.Equal(decimal.NewFromInt(539)) {
		t.Errorf("Revenue = %s, want 539", s.Revenue)
	}
	if !s.ExpectedTotal.Equal(decimal.NewFromInt(534)) {
		t.Errorf("ExpectedTotal = %s, want 534", s.ExpectedTotal)
	}
	if !s.TotalAdjustment.Equal(decimal.NewFromInt(5)) {
		t.Errorf("TotalAdjustment = %s, want 5", s.TotalAdjustment)
	}
	want := menu.Composition{FullPlate: 5, HalfPlate: 1, Water: 4}
	if s.Items != want {
		t.Errorf("Items = %+v, want %+v", s.Items, want)
	}
	if s.TotalItems != 10 {
		t.Errorf("TotalItems = %d, want 10", s.TotalItems)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if !s.Revenue.IsZero() || s.TotalItems != 0 {
		t.Errorf("Summarize(nil) = %+v", s)
	}
}

func TestWriteSummary(t *testing.T) {
	txns := []types.Transaction{txn(180, types.StatusSuccess)}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, ComputeStats(txns), Summarize(txns)); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Revenue:", "180.00", "Full Plate:", "Total adjustment:", "2.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Pending:") {
		t.Errorf("summary shows pending line with no pending transactions")
	}
}

func TestWriteTransactions(t *testing.T) {
	long := txn(89, types.StatusSuccess)
	long.Details = strings.Repeat("x", 60)

	var buf bytes.Buffer
	if err := WriteTransactions(&buf, []types.Transaction{txn(180, types.StatusSuccess), long}); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ROW") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[2], strings.Repeat("x", 41)) {
		t.Errorf("details not truncated: %q", lines[2])
	}
}
