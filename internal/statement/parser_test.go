package statement

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/shopspring/decimal"
)

// sequentialIDs returns an id generator yielding txn-1, txn-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("txn-%d", n)
	}
}

func sampleGrid() Grid {
	return Grid{
		{"Account Statement"},
		{"Account Number : 1234567890"},
		{"Statement Date : 01/04/2024"},
		{},
		{"Transaction Date", "Value Date", "Particulars", "Withdrawals", "Deposits", "Balance"},
		{"01-Apr-2024", "01-Apr-2024", "UPI/123/Payment from ABC/SHAMBHU", "", "180.00", "1180.00"},
		{"01-Apr-2024", "01-Apr-2024", "NEFT/Rent", "500.00", "", "680.00"},
		{"02-Apr-2024", "02-Apr-2024", "UPI/456/XYZ/OTHER SHOP", "", "99.00", "779.00"},
		{"03-Apr-2024", "03-Apr-2024", "UPI/789/PQR/shambhu", "", "1,09.00", "888.00"},
		{"04-Apr-2024", "04-Apr-2024", "UPI/111/LMN/SHAMBHU ", "", "₹250.00", "1138.00"},
		{"Total", "", "", "500.00", "529.00"},
		{"** End of Statement **"},
	}
}

func TestParse_HeaderNotFound(t *testing.T) {
	grid := Grid{
		{"Account Statement"},
		{"Name", "Amount"},
		{"foo", "12"},
	}

	result, err := Parse(grid, Options{})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}
	if result != nil {
		t.Errorf("expected no partial result, got %+v", result)
	}
}

func TestParse_MerchantFilterAndDecomposition(t *testing.T) {
	result, err := Parse(sampleGrid(), Options{
		MerchantKeyword: "SHAMBHU",
		NewID:           sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.HeaderRow != 4 {
		t.Errorf("HeaderRow = %d, want 4", result.HeaderRow)
	}
	if !result.Columns.Detected {
		t.Errorf("expected detected column layout")
	}

	want := []struct {
		id        string
		paid      string
		comp      menu.Composition
		adjust    string
		sourceRow int
	}{
		{"txn-1", "180", menu.Composition{FullPlate: 2}, "2", 6},
		{"txn-2", "109", menu.Composition{FullPlate: 1, Water: 2}, "0", 9},
		{"txn-3", "250", menu.Composition{FullPlate: 2, HalfPlate: 1, Water: 2}, "3", 10},
	}

	if len(result.Transactions) != len(want) {
		t.Fatalf("got %d transactions, want %d: %+v", len(result.Transactions), len(want), result.Transactions)
	}

	for i, w := range want {
		got := result.Transactions[i]
		if got.ID != w.id {
			t.Errorf("[%d] ID = %q, want %q", i, got.ID, w.id)
		}
		if !got.PaidAmount.Equal(decimal.RequireFromString(w.paid)) {
			t.Errorf("[%d] PaidAmount = %s, want %s", i, got.PaidAmount, w.paid)
		}
		if got.Composition != w.comp {
			t.Errorf("[%d] Composition = %+v, want %+v", i, got.Composition, w.comp)
		}
		if !got.Adjustment.Equal(decimal.RequireFromString(w.adjust)) {
			t.Errorf("[%d] Adjustment = %s, want %s", i, got.Adjustment, w.adjust)
		}
		if got.SourceRow != w.sourceRow {
			t.Errorf("[%d] SourceRow = %d, want %d", i, got.SourceRow, w.sourceRow)
		}
		if got.Status != types.StatusSuccess {
			t.Errorf("[%d] Status = %q, want %q", i, got.Status, types.StatusSuccess)
		}
		if !got.ExpectedCost.Add(got.Adjustment).Equal(got.PaidAmount) {
			t.Errorf("[%d] expectedCost + adjustment != paidAmount", i)
		}
	}

	if result.Stats.Accepted != 3 {
		t.Errorf("Stats.Accepted = %d, want 3", result.Stats.Accepted)
	}
	// "Total" row is too short; "** End of Statement **" has one cell.
	if result.Stats.Skipped != 2 {
		t.Errorf("Stats.Skipped = %d, want 2", result.Stats.Skipped)
	}
	// Rent debit and the other merchant.
	if result.Stats.Filtered != 2 {
		t.Errorf("Stats.Filtered = %d, want 2", result.Stats.Filtered)
	}
}

func TestParse_NoMatchesIsEmptyNotError(t *testing.T) {
	result, err := Parse(sampleGrid(), Options{MerchantKeyword: "NOBODY"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Transactions == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(result.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(result.Transactions))
	}
}

func TestParse_PreservesSourceOrder(t *testing.T) {
	grid := Grid{{"Date", "Value Date", "Narration", "Debit", "Credit", "Balance"}}
	amounts := []string{"300", "10", "89", "49", "5", "1000"}
	for i, a := range amounts {
		grid = append(grid, []string{fmt.Sprintf("%02d/04/2024", i+1), "", "UPI/SHAMBHU", "", a, "0"})
	}

	result, err := Parse(grid, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Transactions) != len(amounts) {
		t.Fatalf("got %d transactions, want %d", len(result.Transactions), len(amounts))
	}
	for i, a := range amounts {
		if got := result.Transactions[i].PaidAmount.String(); got != a {
			t.Errorf("[%d] PaidAmount = %s, want %s", i, got, a)
		}
		if got := result.Transactions[i].SourceRow; got != i+2 {
			t.Errorf("[%d] SourceRow = %d, want %d", i, got, i+2)
		}
	}
}

func TestParse_UniqueIDs(t *testing.T) {
	grid := Grid{{"Date", "Value Date", "Narration", "Debit", "Credit", "Balance"}}
	for i := 0; i < 50; i++ {
		grid = append(grid, []string{"01/04/2024", "", "SHAMBHU", "", "89", "0"})
	}

	result, err := Parse(grid, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, txn := range result.Transactions {
		if seen[txn.ID] {
			t.Fatalf("duplicate id %q", txn.ID)
		}
		seen[txn.ID] = true
	}
}

func TestParse_MerchantMatching(t *testing.T) {
	tests := []struct {
		name          string
		keyword       string
		mode          MatchMode
		caseSensitive bool
		details       string
		want          bool
	}{
		{"suffix match", "SHAMBHU", MatchSuffix, false, "UPI/1/SHAMBHU", true},
		{"suffix ignores trailing space", "SHAMBHU", MatchSuffix, false, "UPI/1/SHAMBHU  ", true},
		{"suffix case-insensitive", "SHAMBHU", MatchSuffix, false, "upi/1/shambhu", true},
		{"suffix case-sensitive rejects", "SHAMBHU", MatchSuffix, true, "upi/1/shambhu", false},
		{"suffix rejects infix", "SHAMBHU", MatchSuffix, false, "UPI/SHAMBHU/REF123", false},
		{"contains accepts infix", "SHAMBHU", MatchContains, false, "UPI/SHAMBHU/REF123", true},
		{"contains rejects absent", "SHAMBHU", MatchContains, false, "UPI/OTHER/REF123", false},
		{"empty keyword matches all", "", MatchSuffix, false, "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := Grid{
				{"Date", "Value Date", "Particulars", "Debit", "Credit", "Balance"},
				{"01/04/2024", "", tt.details, "", "89", "0"},
			}
			result, err := Parse(grid, Options{
				MerchantKeyword: tt.keyword,
				MatchMode:       tt.mode,
				CaseSensitive:   tt.caseSensitive,
			})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := len(result.Transactions) == 1; got != tt.want {
				t.Errorf("matched = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_DateRange(t *testing.T) {
	grid := Grid{
		{"Txn Date", "Value Date", "Description", "Debit", "Credit", "Balance"},
		{"31/03/2024", "", "SHAMBHU", "", "89", "0"},
		{"01/04/2024", "", "SHAMBHU", "", "89", "0"},
		{"15-Apr-2024", "", "SHAMBHU", "", "89", "0"},
		{"30/04/2024", "", "SHAMBHU", "", "89", "0"},
		{"01/05/2024", "", "SHAMBHU", "", "89", "0"},
		{"sometime", "", "SHAMBHU", "", "89", "0"},
		{"45397", "", "SHAMBHU", "", "89", "0"}, // 2024-04-15 as an Excel serial
	}

	result, err := Parse(grid, Options{
		DateRange: DateRange{
			Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var got []string
	for _, txn := range result.Transactions {
		got = append(got, txn.Date)
	}
	want := []string{"01/04/2024", "15-Apr-2024", "30/04/2024", "sometime", "45397"}

	if len(got) != len(want) {
		t.Fatalf("got dates %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] date = %q, want %q", i, got[i], want[i])
		}
	}
	if result.Stats.UnparsedDates != 1 {
		t.Errorf("Stats.UnparsedDates = %d, want 1", result.Stats.UnparsedDates)
	}
}

func TestParse_SkipsRepeatedHeader(t *testing.T) {
	grid := Grid{
		{"Transaction Date", "Value Date", "Particulars", "Debit", "Credit", "Balance"},
		{"01/04/2024", "", "SHAMBHU", "", "89", "0"},
		{"Transaction Date", "Value Date", "Particulars", "Debit", "Credit", "Balance"},
		{"02/04/2024", "", "SHAMBHU", "", "49", "0"},
	}

	result, err := Parse(grid, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(result.Transactions))
	}
}

func TestParse_DetectsShiftedColumns(t *testing.T) {
	// Layout with a serial-number and cheque column in front of the narration.
	grid := Grid{
		{"Sr No", "Txn Date", "Cheque No", "Narration", "Dr", "Cr", "Balance"},
		{"1", "01/04/2024", "", "UPI/SHAMBHU", "", "89", "0"},
		{"2", "01/04/2024", "000123", "CHQ/SHAMBHU", "89", "", "0"},
	}

	result, err := Parse(grid, Options{MerchantKeyword: "shambhu"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Columns{Date: 1, ValueDate: -1, Particulars: 3, Debit: 4, Credit: 5, Balance: 6, Detected: true}
	if result.Columns != want {
		t.Errorf("Columns = %+v, want %+v", result.Columns, want)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	if got := result.Transactions[0].Composition; got != (menu.Composition{FullPlate: 1}) {
		t.Errorf("Composition = %+v, want one full plate", got)
	}
}

func TestParse_PositionalFallback(t *testing.T) {
	grid := Grid{
		{"Date", "Col2", "Col3", "Col4", "Col5", "Col6"},
		{"01/04/2024", "01/04/2024", "SHAMBHU", "", "49", "0"},
	}

	result, err := Parse(grid, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Columns.Detected {
		t.Errorf("expected positional fallback")
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	if got := result.Transactions[0].HalfPlate; got != 1 {
		t.Errorf("HalfPlate = %d, want 1", got)
	}
}

func TestParse_MetadataDateLineIsNotHeader(t *testing.T) {
	grid := Grid{
		{"Statement Date : 01/04/2024"},
		{"Date", "Value Date", "Particulars", "Debit", "Credit", "Balance"},
		{"01/04/2024", "", "SHAMBHU", "", "89", "0"},
	}

	result, err := Parse(grid, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.HeaderRow != 1 {
		t.Errorf("HeaderRow = %d, want 1", result.HeaderRow)
	}
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchMode
		wantErr bool
	}{
		{"", MatchSuffix, false},
		{"suffix", MatchSuffix, false},
		{"Contains", MatchContains, false},
		{"prefix", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMatchMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMatchMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMatchMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"180.00", "180"},
		{"1,234.50", "1234.5"},
		{"₹ 250", "250"},
		{"1,234.50 Cr", "1234.5"},
		{"-45", "-45"},
		{"abc", "0"},
		{"1.2.3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseAmount(tt.in)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
