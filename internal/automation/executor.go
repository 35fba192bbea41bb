// Package automation is the boundary to the browser automation service that
// books orders through the POS web UI.
//
// The service itself is external. This package defines the Executor
// contract the replay runner depends on and an HTTP adapter for the
// service's JSON API.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/types"
)

// Credentials log the automation into the POS portal.
type Credentials struct {
	PortalURL string `json:"portalUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// Request asks the executor to book one transaction.
type Request struct {
	Transaction types.Transaction
	Credentials Credentials
	Headless    bool
	Timeout     time.Duration
}

// Result is what the executor reports back. Screenshot is whatever the
// service returns for it (a base64 image or a file name).
type Result struct {
	Success    bool   `json:"success"`
	OrderID    string `json:"orderId,omitempty"`
	Error      string `json:"error,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Executor books a transaction through the POS UI.
//
// A returned error means the executor could not be reached or answered
// unintelligibly. A reached executor that failed to book the order reports
// it through Result.Success and Result.Error instead.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// AutomationError carries the executor's failure message verbatim.
type AutomationError struct {
	Message    string
	Screenshot string
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("automation failed: %s", e.Message)
}

// Err converts an unsuccessful result into an AutomationError.
// It returns nil for successful results.
func (r *Result) Err() error {
	if r == nil {
		return &AutomationError{Message: "no result"}
	}
	if r.Success {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "unknown error"
	}
	return &AutomationError{Message: msg, Screenshot: r.Screenshot}
}
