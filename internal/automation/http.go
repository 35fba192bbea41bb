package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/types"
)

// defaultTimeout is the per-order browser timeout when none is configured.
const defaultTimeout = 30 * time.Second

// serviceRequest is the automation service's request body.
type serviceRequest struct {
	Action      string        `json:"action"`
	Transaction *serviceTxn   `json:"transaction,omitempty"`
	Config      serviceConfig `json:"config"`
}

type serviceConfig struct {
	PortalURL string `json:"portalUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Headless  bool   `json:"headless"`
	Timeout   int64  `json:"timeout"`
}

// serviceTxn is a transaction in the service's flat JSON shape.
type serviceTxn struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	ValueDate    string  `json:"valueDate"`
	Details      string  `json:"details"`
	PaidAmount   float64 `json:"paidAmount"`
	FullPlate    int     `json:"fullPlate"`
	HalfPlate    int     `json:"halfPlate"`
	Water        int     `json:"water"`
	Packing      int     `json:"packing"`
	ExpectedCost float64 `json:"expectedCost"`
	Adjustment   float64 `json:"adjustment"`
}

func toServiceTxn(t types.Transaction) *serviceTxn {
	return &serviceTxn{
		ID:           t.ID,
		Date:         t.Date,
		ValueDate:    t.ValueDate,
		Details:      t.Details,
		PaidAmount:   t.PaidAmount.InexactFloat64(),
		FullPlate:    t.FullPlate,
		HalfPlate:    t.HalfPlate,
		Water:        t.Water,
		Packing:      t.Packing,
		ExpectedCost: t.ExpectedCost.InexactFloat64(),
		Adjustment:   t.Adjustment.InexactFloat64(),
	}
}

// HTTPExecutor calls the automation service over HTTP.
type HTTPExecutor struct {
	url        string
	httpClient *http.Client

	// grace is added to the browser timeout for the HTTP call itself, since
	// the service also has to start and log in a browser.
	grace time.Duration
}

// NewHTTPExecutor returns an executor posting to serviceURL, e.g.
// "http://localhost:3001/api/automation".
func NewHTTPExecutor(serviceURL string) (*HTTPExecutor, error) {
	if serviceURL == "" {
		return nil, errors.New("automation service url is required")
	}
	return &HTTPExecutor{
		url:        serviceURL,
		httpClient: &http.Client{},
		grace:      30 * time.Second,
	}, nil
}

// Execute books one transaction through the service.
func (e *HTTPExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	body, err := json.Marshal(serviceRequest{
		Action:      "createOrder",
		Transaction: toServiceTxn(req.Transaction),
		Config: serviceConfig{
			PortalURL: req.Credentials.PortalURL,
			Username:  req.Credentials.Username,
			Password:  req.Credentials.Password,
			Headless:  req.Headless,
			Timeout:   timeout.Milliseconds(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode automation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+e.grace)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build automation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("automation service unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read automation response: %w", err)
	}

	// The service answers failures with {success:false, error} and a 4xx/5xx
	// status; decode the body first so its message is kept.
	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &AutomationError{Message: fmt.Sprintf("service returned %s", resp.Status)}
		}
		return nil, fmt.Errorf("failed to decode automation response: %w", err)
	}

	if resp.StatusCode >= 300 && result.Success {
		return nil, &AutomationError{Message: fmt.Sprintf("service returned %s", resp.Status)}
	}
	if !result.Success && result.Error == "" && resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("service returned %s", resp.Status)
	}

	return &result, nil
}
