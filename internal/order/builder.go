// =============================================================================
// Statement Order Replay - Order Document Builder
// =============================================================================
//
// The builder turns a Transaction's composition into a pending Document.
//
// LINE COMPUTATION (per non-zero item, in menu order):
//   salesPrice      = quantity * unitPrice
//   tax[c]          = salesPrice * rate[c]         for each tax component c
//   taxAmount       = sum(tax[c])
//   totalSalesPrice = salesPrice + taxAmount
//
// DOCUMENT TOTALS:
//   totalSalesPrice = sum(line.salesPrice)
//   totalTax        = sum(line.taxAmount)
//   total           = totalSalesPrice + totalTax   (== sum(line.totalSalesPrice))
//
// =============================================================================

package order

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/shopspring/decimal"
)

// ErrEmptyComposition is returned when a transaction has no items to order.
var ErrEmptyComposition = errors.New("transaction has no items to order")

// inclusivePricePlaces is the precision of tax-exclusive unit prices.
const inclusivePricePlaces = 4

// Option configures a Builder.
type Option func(*Builder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator replaces the UUID generator used for document, line and
// KOT ids.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// Builder creates order documents. It is safe for concurrent use if its
// clock and id generator are.
type Builder struct {
	cfg   Config
	now   func() time.Time
	newID func() string
	seq   atomic.Int64
}

// NewBuilder validates cfg and returns a builder for it.
func NewBuilder(cfg Config, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order config: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	b := &Builder{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// UnitPrice returns the per-unit sales price of an item before tax.
func (b *Builder) UnitPrice(kind menu.ItemKind) decimal.Decimal {
	price := b.cfg.Prices.Price(kind)
	if !b.cfg.Tax.Inclusive {
		return price
	}
	return price.Div(decimal.NewFromInt(1).Add(b.cfg.Tax.TotalRate())).Round(inclusivePricePlaces)
}

// Build creates a pending, version 1 document for the transaction.
func (b *Builder) Build(txn types.Transaction) (*Document, error) {
	if txn.Composition.IsEmpty() {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, ErrEmptyComposition)
	}

	now := b.now().In(b.cfg.Location)
	kotID := b.newID()

	doc := &Document{
		ID:            b.newID(),
		KotID:         kotID,
		Version:       1,
		Status:        StatusPending,
		Payments:      []Payment{},
		Owner:         b.owner(),
		Cashier:       b.cfg.Register.Cashier(),
		BusinessDate:  businessDate(now),
		Number:        fmt.Sprintf("%s%04d", b.cfg.NumberPrefix, b.seq.Add(1)),
		CreatedAt:     now,
		TransactionID: txn.ID,
		Meta:          copyMeta(b.cfg.Meta),
	}

	totalSales := decimal.Zero
	totalTax := decimal.Zero

	for _, kind := range menu.Kinds() {
		qty := txn.Composition.Quantity(kind)
		if qty <= 0 {
			continue
		}

		line := b.line(kind, qty, len(doc.Lines)+1, kotID)
		doc.Lines = append(doc.Lines, line)

		totalSales = totalSales.Add(line.SalesPrice)
		totalTax = totalTax.Add(line.TaxAmount)
	}

	doc.TotalSalesPrice = totalSales
	doc.TotalTax = totalTax
	doc.Total = totalSales.Add(totalTax)
	doc.PaymentOutstanding = doc.Total

	doc.Logs = []LogEntry{{
		Event:     "New Order Created",
		EventType: "finish-order",
		Description: fmt.Sprintf("New bill created\nNew Items : %d , Total Quantity: %d , Draft Total : %s",
			len(doc.Lines), doc.Quantity(), doc.Total.StringFixed(2)),
		At:    now,
		Actor: doc.Cashier,
	}}

	return doc, nil
}

// line computes one order line.
func (b *Builder) line(kind menu.ItemKind, qty, sequence int, kotID string) OrderLine {
	unit := b.UnitPrice(kind)
	sales := unit.Mul(decimal.NewFromInt(int64(qty)))

	taxes := make([]AppliedTax, 0, len(b.cfg.Tax.Components))
	taxAmount := decimal.Zero
	for _, c := range b.cfg.Tax.Components {
		amount := sales.Mul(c.Rate)
		taxes = append(taxes, AppliedTax{Component: c, OnAmount: sales, Amount: amount})
		taxAmount = taxAmount.Add(amount)
	}

	return OrderLine{
		ID:              b.newID(),
		Kind:            kind,
		Quantity:        qty,
		UnitPrice:       unit,
		SalesPrice:      sales,
		Taxes:           taxes,
		TaxAmount:       taxAmount,
		TotalSalesPrice: sales.Add(taxAmount),
		Sequence:        sequence,
		KotID:           kotID,
		Product:         b.cfg.Catalogue[kind],
	}
}

func (b *Builder) owner() Owner {
	r := b.cfg.Register
	return Owner{
		CompanyID:    r.CompanyID,
		RegisterID:   r.RegisterID,
		RegisterName: r.RegisterName,
		LocationID:   r.LocationID,
		LocationName: r.LocationName,
	}
}

// businessDate formats midnight of t's day in t's zone.
func businessDate(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Format(time.RFC3339)
}

func copyMeta(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	c := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		c[k] = v
	}
	return c
}
