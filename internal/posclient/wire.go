// =============================================================================
// Statement Order Replay - POS Wire Format
// =============================================================================
//
// This file maps order.Document onto the POS backend's bill JSON.
//
// CREATE REQUEST:
//   billEnvelope{client_bill_id, version, payload: billPayload, owner, ...}
//
// SETTLE REQUEST:
//   billPayload with the server id in "_id", version 2, status "settled"
//   and the cash payment filled in.
//
// Amounts travel as JSON numbers. Line total_sales_price is the pre-tax
// line amount in this format, unlike order.OrderLine.TotalSalesPrice.
//
// =============================================================================

package posclient

import (
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/menu"
	"github.com/ginjaninja78/statement-order-replay/internal/order"
	"github.com/shopspring/decimal"
)

// paymentTimeLayout matches the POS UI's payment timestamp, e.g.
// "1 Apr 2024 - 08:30 pm".
const paymentTimeLayout = "2 Jan 2006 - 03:04 pm"

// =============================================================================
// WIRE TYPES
// =============================================================================

type billEnvelope struct {
	ClientBillID string      `json:"client_bill_id"`
	Version      int         `json:"version"`
	Payload      billPayload `json:"payload"`
	Owner        wireOwner   `json:"owner"`
	IsExternal   bool        `json:"is_external"`
	CompanyID    int         `json:"company_id"`
}

type wireOwner struct {
	RegisterID   int    `json:"register_id"`
	RegisterName string `json:"register_name"`
	LocationName string `json:"location_name"`
	LocationID   int    `json:"location_id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
}

type wireLocation struct {
	ID int `json:"id"`
}

type wireCashier struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type billPayload struct {
	ServerID   string       `json:"_id,omitempty"`
	ClientBill bool         `json:"clientBill"`
	Version    int          `json:"version"`
	ID         string       `json:"id"`
	Owner      wireOwner    `json:"owner"`
	Location   wireLocation `json:"location"`
	Customer   interface{}  `json:"customer"`
	Frozen     bool         `json:"frozen"`
	Type       string       `json:"type"`
	Status     string       `json:"status"`
	Mode       string       `json:"mode"`

	Payments           []wirePayment `json:"payments"`
	PaymentUID         int           `json:"payment_uid"`
	TotalPaymentAmount float64       `json:"total_payment_amount"`
	PaymentOutstanding float64       `json:"payment_outstanding"`
	TransactionPending float64       `json:"transaction_pending"`
	CashReceived       float64       `json:"cash_received"`
	CashBalance        float64       `json:"cash_balance"`

	DiscountAmount  float64 `json:"discount_amount"`
	TotalSalesPrice float64 `json:"total_sales_price"`
	TotalTax        float64 `json:"total_tax"`
	TotalLineTax    float64 `json:"total_line_tax"`
	SubTotal        float64 `json:"sub_total"`
	Total           float64 `json:"total"`
	RoundOffAmount  float64 `json:"round_off_amount"`

	BillLines         []wireLine `json:"bill_lines"`
	LastAddedLine     string     `json:"last_added_line"`
	LastOrderSequence int        `json:"lastOrderSequence"`

	ClientCreatedAt     int64       `json:"client_created_at"`
	ClientCreatedBy     int         `json:"client_created_by"`
	ClientCreatedByName string      `json:"client_created_by_name"`
	BusinessDate        string      `json:"business_date"`
	SchemaVersion       int         `json:"schema_version"`
	CompanyID           int         `json:"company_id"`
	Cashier             wireCashier `json:"cashier"`

	Table       interface{} `json:"table,omitempty"`
	SubType     string      `json:"sub_type,omitempty"`
	SubTypeText string      `json:"sub_type_text,omitempty"`
	Delivery    bool        `json:"delivery"`

	Logs         []wireLog `json:"logs"`
	Number       string    `json:"number"`
	VersionCheck bool      `json:"version_check"`

	SettledAt    int64  `json:"settled_at,omitempty"`
	RegisterName string `json:"register_name,omitempty"`
}

type wireVariant struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	ProductID   int    `json:"product_id"`
	FullName    string `json:"full_name"`
	ShortName   string `json:"short_name"`
	ProductName string `json:"product_name"`
	KotTypeID   string `json:"kot_type_id"`
	Code        string `json:"code"`
	SKU         string `json:"sku"`
	CategoryID  int    `json:"category_id"`
}

type wireTax struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Code string  `json:"code"`
	Rate float64 `json:"rate"`
}

type wireAppliedTax struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	OnAmount float64 `json:"on_amount"`
	Amount   float64 `json:"amount"`
}

type wireModifier struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	ShortName       string  `json:"short_name"`
	ModifierGroup   string  `json:"modifier_group"`
	ModifierGroupID int     `json:"modifier_group_id"`
	SalesPrice      float64 `json:"sales_price"`
	ParentID        int     `json:"parent_id"`
	UnitQuantity    int     `json:"unit_quantity"`
}

type wireLine struct {
	ID              string           `json:"id"`
	Variant         wireVariant      `json:"variant"`
	Quantity        int              `json:"quantity"`
	Unit            string           `json:"unit"`
	UnitScale       int              `json:"unit_scale"`
	UnitQuantity    int              `json:"unit_quantity"`
	Taxes           []wireTax        `json:"taxes"`
	AppliedTaxes    []wireAppliedTax `json:"applied_taxes"`
	Modifiers       []wireModifier   `json:"modifiers"`
	SalesPrice      float64          `json:"sales_price"`
	TotalSalesPrice float64          `json:"total_sales_price"`
	Total           float64          `json:"total"`
	TotalTax        float64          `json:"total_tax"`
	DiscountType    string           `json:"discount_type"`
	Type            string           `json:"type"`
	FoodType        string           `json:"food_type"`
	KotID           string           `json:"kot_id"`
	OrderSequence   int              `json:"orderSequence"`
	SortOrder       int              `json:"sort_order"`
	ClientCreatedAt int64            `json:"client_created_at"`
}

type wirePayment struct {
	UID             int         `json:"uid"`
	Method          string      `json:"method"`
	Amount          float64     `json:"amount"`
	ReceivedAmount  float64     `json:"received_amount"`
	PaymentMode     string      `json:"payment_mode"`
	Status          string      `json:"status"`
	OnlinePaymentID interface{} `json:"online_payment_id"`
	CreatedAt       string      `json:"created_at"`
}

type wireUser struct {
	Username string `json:"username"`
	ID       int    `json:"id"`
}

type wireLog struct {
	Event       string   `json:"event"`
	EventType   string   `json:"event_type"`
	Description string   `json:"description"`
	Timestamp   int64    `json:"timestamp"`
	User        wireUser `json:"user"`
}

// billResponse is the backend's bill resource.
type billResponse struct {
	ID        string `json:"_id"`
	Version   int    `json:"version"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// =============================================================================
// ENCODING
// =============================================================================

// encodeCreate wraps a pending document in the create envelope.
func encodeCreate(doc *order.Document) billEnvelope {
	payload := encodePayload(doc)
	return billEnvelope{
		ClientBillID: doc.ID,
		Version:      doc.Version,
		Payload:      payload,
		Owner:        payload.Owner,
		IsExternal:   false,
		CompanyID:    doc.Owner.CompanyID,
	}
}

// encodeSettle builds the settle body for a settled document.
func encodeSettle(serverID string, doc *order.Document) billPayload {
	payload := encodePayload(doc)
	payload.ServerID = serverID
	payload.RegisterName = doc.Owner.RegisterName
	if doc.SettledAt != nil {
		payload.SettledAt = doc.SettledAt.Unix()
	}
	return payload
}

func encodePayload(doc *order.Document) billPayload {
	total := money(doc.Total)
	outstanding := money(doc.PaymentOutstanding)

	owner := wireOwner{
		RegisterID:   doc.Owner.RegisterID,
		RegisterName: doc.Owner.RegisterName,
		LocationName: doc.Owner.LocationName,
		LocationID:   doc.Owner.LocationID,
		Name:         doc.Owner.RegisterName,
		Location:     doc.Owner.LocationName,
	}

	p := billPayload{
		ClientBill: true,
		Version:    doc.Version,
		ID:         doc.ID,
		Owner:      owner,
		Location:   wireLocation{ID: doc.Owner.LocationID},
		Frozen:     doc.Frozen,
		Type:       "sale",
		Status:     string(doc.Status),
		Mode:       metaString(doc.Meta, "mode", "restaurant"),

		Payments:           make([]wirePayment, 0, len(doc.Payments)),
		PaymentUID:         len(doc.Payments),
		TotalPaymentAmount: total,
		PaymentOutstanding: outstanding,
		TransactionPending: outstanding,

		TotalSalesPrice: money(doc.TotalSalesPrice),
		TotalTax:        money(doc.TotalTax),
		TotalLineTax:    money(doc.TotalTax),
		SubTotal:        money(doc.TotalSalesPrice),
		Total:           total,

		BillLines:         make([]wireLine, 0, len(doc.Lines)),
		LastOrderSequence: len(doc.Lines),

		ClientCreatedAt:     doc.CreatedAt.Unix(),
		ClientCreatedBy:     doc.Cashier.ID,
		ClientCreatedByName: doc.Cashier.Name,
		BusinessDate:        doc.BusinessDate,
		SchemaVersion:       1,
		CompanyID:           doc.Owner.CompanyID,
		Cashier:             wireCashier{ID: doc.Cashier.ID, Name: doc.Cashier.Name},

		Table:       doc.Meta["table"],
		SubType:     metaString(doc.Meta, "sub_type", ""),
		SubTypeText: metaString(doc.Meta, "sub_type_text", ""),

		Logs:         make([]wireLog, 0, len(doc.Logs)),
		Number:       doc.Number,
		VersionCheck: true,
	}

	// A pending bill is drafted as paid in cash; a settled one has the cash
	// booked as a payment and the drawer balance moved.
	if doc.IsSettled() {
		p.CashBalance = -total
	} else {
		p.CashReceived = total
	}

	for _, l := range doc.Lines {
		p.BillLines = append(p.BillLines, encodeLine(l, doc.CreatedAt))
	}
	if n := len(doc.Lines); n > 0 {
		p.LastAddedLine = doc.Lines[n-1].ID
	}

	for _, pay := range doc.Payments {
		p.Payments = append(p.Payments, wirePayment{
			UID:            pay.UID,
			Method:         pay.Method,
			Amount:         money(pay.Amount),
			ReceivedAmount: money(pay.ReceivedAmount),
			PaymentMode:    pay.Mode,
			Status:         pay.Status,
			CreatedAt:      formatPaymentTime(pay.CreatedAt),
		})
	}

	for _, entry := range doc.Logs {
		p.Logs = append(p.Logs, wireLog{
			Event:       entry.Event,
			EventType:   entry.EventType,
			Description: entry.Description,
			Timestamp:   entry.At.Unix(),
			User:        wireUser{Username: entry.Actor.Name, ID: entry.Actor.ID},
		})
	}

	return p
}

func encodeLine(l order.OrderLine, createdAt time.Time) wireLine {
	sales := money(l.SalesPrice)

	w := wireLine{
		ID: l.ID,
		Variant: wireVariant{
			ID:          l.Product.VariantID,
			Type:        "catalogue-item",
			ProductID:   l.Product.ProductID,
			FullName:    l.Product.Name,
			ShortName:   l.Product.Name,
			ProductName: l.Product.Name,
			KotTypeID:   "kot/kot",
			Code:        l.Product.Code,
			SKU:         l.Product.SKU,
			CategoryID:  l.Product.CategoryID,
		},
		Quantity:        l.Quantity,
		Unit:            "pcs",
		UnitScale:       1,
		UnitQuantity:    1,
		Taxes:           make([]wireTax, 0, len(l.Taxes)),
		AppliedTaxes:    make([]wireAppliedTax, 0, len(l.Taxes)),
		Modifiers:       []wireModifier{},
		SalesPrice:      sales,
		TotalSalesPrice: sales,
		Total:           sales,
		TotalTax:        money(l.TaxAmount),
		DiscountType:    "no",
		Type:            "normal",
		FoodType:        foodType(l),
		KotID:           l.KotID,
		OrderSequence:   l.Sequence,
		SortOrder:       l.Sequence,
		ClientCreatedAt: createdAt.Unix(),
	}

	for _, t := range l.Taxes {
		w.Taxes = append(w.Taxes, wireTax{
			ID:   t.Component.ID,
			Name: t.Component.Name,
			Code: t.Component.Code,
			Rate: money(t.Component.Rate),
		})
		w.AppliedTaxes = append(w.AppliedTaxes, wireAppliedTax{
			ID:       t.Component.ID,
			Name:     t.Component.Name,
			Code:     t.Component.Code,
			OnAmount: money(t.OnAmount),
			Amount:   money(t.Amount),
		})
	}

	if l.Product.ModifierID != 0 {
		w.Modifiers = append(w.Modifiers, wireModifier{
			ID:              l.Product.ModifierID,
			Name:            l.Product.ModifierName,
			ShortName:       l.Product.ModifierName,
			ModifierGroup:   l.Product.Name,
			ModifierGroupID: l.Product.ModifierGroupID,
			SalesPrice:      sales,
			ParentID:        l.Product.ProductID,
			UnitQuantity:    1,
		})
	}

	return w
}

// =============================================================================
// HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func foodType(l order.OrderLine) string {
	if l.Product.FoodType != "" {
		return l.Product.FoodType
	}
	if l.Kind == menu.Water || l.Kind == menu.Packing {
		return "na"
	}
	return "veg"
}

func metaString(meta map[string]interface{}, key, fallback string) string {
	if s, ok := meta[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func formatPaymentTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(paymentTimeLayout)
}
