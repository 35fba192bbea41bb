package order

import (
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/shopspring/decimal"
)

// Status is the document lifecycle state: pending, then settled.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
)

// Actor is a POS user recorded in audit logs.
type Actor struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Owner is the register and location an order belongs to.
type Owner struct {
	CompanyID    int    `json:"companyId"`
	RegisterID   int    `json:"registerId"`
	RegisterName string `json:"registerName"`
	LocationID   int    `json:"locationId"`
	LocationName string `json:"locationName"`
}

// AppliedTax is one tax component's charge on a line.
type AppliedTax struct {
	Component TaxComponent    `json:"component"`
	OnAmount  decimal.Decimal `json:"onAmount"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderLine is one menu item's contribution to a document.
type OrderLine struct {
	ID       string        `json:"id"`
	Kind     menu.ItemKind `json:"kind"`
	Quantity int           `json:"quantity"`

	UnitPrice decimal.Decimal `json:"unitPrice"`

	// SalesPrice is Quantity * UnitPrice, before tax.
	SalesPrice decimal.Decimal `json:"salesPrice"`

	Taxes     []AppliedTax    `json:"taxes"`
	TaxAmount decimal.Decimal `json:"taxAmount"`

	// TotalSalesPrice is SalesPrice + TaxAmount.
	TotalSalesPrice decimal.Decimal `json:"totalSalesPrice"`

	// Sequence is the 1-based position of the line in the order.
	Sequence int     `json:"sequence"`
	KotID    string  `json:"kotId"`
	Product  Product `json:"product"`
}

// Payment records money received against a document.
type Payment struct {
	UID            int             `json:"uid"`
	Method         string          `json:"method"`
	Mode           string          `json:"mode"`
	Status         string          `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	ReceivedAmount decimal.Decimal `json:"receivedAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// LogEntry is one audit trail event.
type LogEntry struct {
	Event       string    `json:"event"`
	EventType   string    `json:"eventType"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
	Actor       Actor     `json:"actor"`
}

// Document is an order built from one transaction.
//
// Documents are values: Settle returns a new Document and never changes its
// input. Use Clone before modifying a document obtained elsewhere.
type Document struct {
	ID      string `json:"id"`
	KotID   string `json:"kotId"`
	Version int    `json:"version"`
	Status  Status `json:"status"`
	Frozen  bool   `json:"frozen"`

	Lines []OrderLine `json:"lines"`

	TotalSalesPrice    decimal.Decimal `json:"totalSalesPrice"`
	TotalTax           decimal.Decimal `json:"totalTax"`
	Total              decimal.Decimal `json:"total"`
	PaymentOutstanding decimal.Decimal `json:"paymentOutstanding"`

	Payments []Payment  `json:"payments"`
	Logs     []LogEntry `json:"logs"`

	Owner   Owner `json:"owner"`
	Cashier Actor `json:"cashier"`

	// BusinessDate is midnight of the business day in the register's zone,
	// formatted as RFC 3339.
	BusinessDate string `json:"businessDate"`
	Number       string `json:"number"`

	CreatedAt time.Time  `json:"createdAt"`
	SettledAt *time.Time `json:"settledAt,omitempty"`

	// TransactionID links the document to the statement transaction.
	TransactionID string `json:"transactionId"`

	// Meta holds vendor passthrough fields that take no part in totals.
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// IsSettled reports whether the document has been settled.
func (d *Document) IsSettled() bool {
	return d.Status == StatusSettled
}

// Quantity is the total number of units across all lines.
func (d *Document) Quantity() int {
	n := 0
	for _, l := range d.Lines {
		n += l.Quantity
	}
	return n
}

// Clone returns a deep copy of the document. Meta values are copied one
// level deep; nested vendor maps are shared.
func (d *Document) Clone() *Document {
	c := *d

	c.Lines = make([]OrderLine, len(d.Lines))
	for i, l := range d.Lines {
		l.Taxes = append([]AppliedTax(nil), l.Taxes...)
		c.Lines[i] = l
	}

	c.Payments = append([]Payment(nil), d.Payments...)
	c.Logs = append([]LogEntry(nil), d.Logs...)

	if d.SettledAt != nil {
		at := *d.SettledAt
		c.SettledAt = &at
	}

	if d.Meta != nil {
		c.Meta = make(map[string]interface{}, len(d.Meta))
		for k, v := range d.Meta {
			c.Meta[k] = v
		}
	}

	return &c
}
