package order

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 4, 1, 20, 30, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Prices:    menu.DefaultPriceTable(),
		Tax:       DefaultTaxConfig(),
		Catalogue: DefaultCatalogue(),
		Register: Register{
			CompanyID: 11777, LocationID: 181155, LocationName: "Stall",
			RegisterID: 58309, RegisterName: "Stall - POS",
			CashierID: 129590, CashierName: "Cashier",
		},
		NumberPrefix: "2/",
		Meta:         DefaultMeta(69624),
	}
}

func newTestBuilder(t *testing.T, cfg Config) *Builder {
	t.Helper()
	n := 0
	b, err := NewBuilder(cfg,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func txnWith(c menu.Composition) types.Transaction {
	return types.Transaction{ID: "txn-1", Composition: c, Status: types.StatusSuccess}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuild_LinesAndTotals(t *testing.T) {
	b := newTestBuilder(t, testConfig())

	doc, err := b.Build(txnWith(menu.Composition{FullPlate: 2, HalfPlate: 1, Water: 2}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(doc.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(doc.Lines))
	}

	wantLines := []struct {
		kind  menu.ItemKind
		qty   int
		sales string
		tax   string
	}{
		{menu.FullPlate, 2, "178", "8.9"},
		{menu.HalfPlate, 1, "49", "2.45"},
		{menu.Water, 2, "20", "1"},
	}
	for i, w := range wantLines {
		l := doc.Lines[i]
		if l.Kind != w.kind || l.Quantity != w.qty {
			t.Errorf("line %d = %s x%d, want %s x%d", i, l.Kind, l.Quantity, w.kind, w.qty)
		}
		if !l.SalesPrice.Equal(dec(w.sales)) {
			t.Errorf("line %d SalesPrice = %s, want %s", i, l.SalesPrice, w.sales)
		}
		if !l.TaxAmount.Equal(dec(w.tax)) {
			t.Errorf("line %d TaxAmount = %s, want %s", i, l.TaxAmount, w.tax)
		}
		if l.Sequence != i+1 {
			t.Errorf("line %d Sequence = %d, want %d", i, l.Sequence, i+1)
		}
		if l.KotID != doc.KotID {
			t.Errorf("line %d KotID = %q, want %q", i, l.KotID, doc.KotID)
		}
	}

	if !doc.TotalSalesPrice.Equal(dec("247")) {
		t.Errorf("TotalSalesPrice = %s, want 247", doc.TotalSalesPrice)
	}
	if !doc.TotalTax.Equal(dec("12.35")) {
		t.Errorf("TotalTax = %s, want 12.35", doc.TotalTax)
	}
	if !doc.Total.Equal(dec("259.35")) {
		t.Errorf("Total = %s, want 259.35", doc.Total)
	}

	if doc.Status != StatusPending || doc.Frozen || doc.Version != 1 {
		t.Errorf("got status=%s frozen=%v version=%d, want pending/false/1", doc.Status, doc.Frozen, doc.Version)
	}
	if !doc.PaymentOutstanding.Equal(doc.Total) {
		t.Errorf("PaymentOutstanding = %s, want %s", doc.PaymentOutstanding, doc.Total)
	}
	if len(doc.Logs) != 1 || doc.Logs[0].Event != "New Order Created" {
		t.Errorf("Logs = %+v, want one creation entry", doc.Logs)
	}
	if doc.TransactionID != "txn-1" {
		t.Errorf("TransactionID = %q, want txn-1", doc.TransactionID)
	}
	if doc.Number != "2/0001" {
		t.Errorf("Number = %q, want 2/0001", doc.Number)
	}
	if doc.BusinessDate != "2024-04-01T00:00:00Z" {
		t.Errorf("BusinessDate = %q", doc.BusinessDate)
	}
}

func TestBuild_LineTotalsSumToDocumentTotal(t *testing.T) {
	configs := map[string]Config{
		"exclusive": testConfig(),
		"inclusive": func() Config {
			c := testConfig()
			c.Tax.Inclusive = true
			return c
		}(),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			b := newTestBuilder(t, cfg)

			for cents := int64(500); cents <= 200000; cents += 1733 {
				paid := decimal.New(cents, -2)
				breakdown := menu.Decompose(paid, cfg.Prices)
				if breakdown.Composition.IsEmpty() {
					continue
				}

				doc, err := b.Build(txnWith(breakdown.Composition))
				if err != nil {
					t.Fatalf("Build(%s) error = %v", paid, err)
				}

				sum := decimal.Zero
				for _, l := range doc.Lines {
					sum = sum.Add(l.TotalSalesPrice)
				}
				if !sum.Equal(doc.Total) {
					t.Fatalf("paid %s: sum(line totals) = %s, total = %s", paid, sum, doc.Total)
				}
			}
		})
	}
}

func TestBuild_TaxSplitEvenly(t *testing.T) {
	b := newTestBuilder(t, testConfig())

	doc, err := b.Build(txnWith(menu.Composition{FullPlate: 1}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	taxes := doc.Lines[0].Taxes
	if len(taxes) != 2 {
		t.Fatalf("got %d tax components, want 2", len(taxes))
	}
	if !taxes[0].Amount.Equal(taxes[1].Amount) {
		t.Errorf("components differ: %s vs %s", taxes[0].Amount, taxes[1].Amount)
	}
	if !taxes[0].Amount.Equal(dec("2.225")) {
		t.Errorf("component amount = %s, want 2.225", taxes[0].Amount)
	}
	if !taxes[0].OnAmount.Equal(dec("89")) {
		t.Errorf("OnAmount = %s, want 89", taxes[0].OnAmount)
	}
}

func TestBuild_InclusivePricing(t *testing.T) {
	cfg := testConfig()
	cfg.Tax.Inclusive = true
	b := newTestBuilder(t, cfg)

	if got := b.UnitPrice(menu.FullPlate); !got.Equal(dec("84.7619")) {
		t.Errorf("UnitPrice(full plate) = %s, want 84.7619", got)
	}

	doc, err := b.Build(txnWith(menu.Composition{FullPlate: 1}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// 84.7619 * 1.05 = 88.999995
	if diff := doc.Total.Sub(dec("89")).Abs(); diff.GreaterThan(dec("0.01")) {
		t.Errorf("Total = %s, want about 89", doc.Total)
	}
}

func TestBuild_EmptyComposition(t *testing.T) {
	b := newTestBuilder(t, testConfig())

	_, err := b.Build(txnWith(menu.Composition{}))
	if !errors.Is(err, ErrEmptyComposition) {
		t.Errorf("expected ErrEmptyComposition, got %v", err)
	}
}

func TestBuild_SkipsZeroQuantities(t *testing.T) {
	b := newTestBuilder(t, testConfig())

	doc, err := b.Build(txnWith(menu.Composition{FullPlate: 1, Packing: 1}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(doc.Lines))
	}
	if doc.Lines[1].Kind != menu.Packing || doc.Lines[1].Sequence != 2 {
		t.Errorf("second line = %s seq %d, want packing seq 2", doc.Lines[1].Kind, doc.Lines[1].Sequence)
	}
}

func TestNewBuilder_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing catalogue entry", func(c *Config) { delete(c.Catalogue, menu.Water) }},
		{"zero price", func(c *Config) { c.Prices.Packing = decimal.Zero }},
		{"negative tax", func(c *Config) { c.Tax.Components[0].Rate = dec("-0.1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := NewBuilder(cfg); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
