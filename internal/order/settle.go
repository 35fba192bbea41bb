package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAlreadySettled is returned when settling a document that is not pending.
var ErrAlreadySettled = errors.New("order document is already settled")

// Settle derives the settled version of a pending document: version bumped,
// frozen, fully paid in cash, with a "Bill settled" audit entry by actor.
//
// The input document is not modified. Settle does not remember what it has
// settled: calling it twice on the same pending document yields two
// independent settled versions, so callers must settle each order once.
func Settle(doc *Document, at time.Time, actor Actor) (*Document, error) {
	if doc == nil {
		return nil, errors.New("cannot settle a nil document")
	}
	if doc.Status != StatusPending {
		return nil, fmt.Errorf("document %s (version %d): %w", doc.ID, doc.Version, ErrAlreadySettled)
	}

	settled := doc.Clone()
	settled.Version = doc.Version + 1
	settled.Frozen = true
	settled.Status = StatusSettled
	settled.PaymentOutstanding = decimal.Zero

	settled.Payments = append(settled.Payments, Payment{
		UID:            len(doc.Payments) + 1,
		Method:         "cash",
		Mode:           "offline",
		Status:         "success",
		Amount:         doc.PaymentOutstanding,
		ReceivedAmount: doc.PaymentOutstanding,
		CreatedAt:      at,
	})

	settled.Logs = append(settled.Logs, LogEntry{
		Event:       "Bill settled",
		EventType:   "settle",
		Description: fmt.Sprintf("Payment Mode : offline , Value : %s", doc.PaymentOutstanding.StringFixed(2)),
		At:          at,
		Actor:       actor,
	})

	settledAt := at
	settled.SettledAt = &settledAt

	return settled, nil
}
