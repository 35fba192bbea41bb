// =============================================================================
// Statement Order Replay - Remote Order Client
// =============================================================================
//
// Client creates and settles orders on the POS backend.
//
// CALL CONTRACT:
//   1. CreateOrder(pending document)          -> server id
//   2. SettleOrder(server id, settled version) -> updated resource
//
// Neither call is retried and neither carries a deduplication key: a
// repeated call may book a duplicate order. Callers are responsible for
// invoking each call at most once per transaction.
//
// =============================================================================

package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/order"
)

// Config holds the backend endpoints and credentials.
type Config struct {
	// BaseURL is the sales API root; bills are created at BaseURL + "/bills".
	BaseURL string

	// SettleURL is the full URL settlements are posted to.
	SettleURL string

	// AuthToken is sent as a bearer token.
	AuthToken string

	// ClientHeader and Language are sent as X-Client and X-Prime-Language.
	ClientHeader string
	Language     string

	// Timeout bounds each call. Default: 30s.
	Timeout time.Duration
}

// CreateResponse is the server's view of a newly created order.
type CreateResponse struct {
	ServerID  string `json:"serverId"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SettleResponse is the server's view of a settled order.
type SettleResponse struct {
	ServerID  string `json:"serverId"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updatedAt"`
}

// Client talks to the POS backend. It holds no per-order state and is safe
// for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("pos base url is required")
	}
	if cfg.SettleURL == "" {
		return nil, errors.New("pos settle url is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("pos auth token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}, nil
}

// CreateOrder posts a pending document to the backend.
func (c *Client) CreateOrder(ctx context.Context, doc *order.Document) (*CreateResponse, error) {
	if doc == nil {
		return nil, errors.New("cannot create a nil document")
	}

	var resp billResponse
	if err := c.post(ctx, "create", c.cfg.BaseURL+"/bills", encodeCreate(doc), &resp); err != nil {
		return nil, err
	}

	return &CreateResponse{
		ServerID:  resp.ID,
		Version:   resp.Version,
		CreatedAt: resp.CreatedAt,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

// SettleOrder posts the settled version of a created order.
//
// It fails with ErrSettleBeforeCreate when serverID is empty and with
// ErrNotSettled when the document has not been through order.Settle.
func (c *Client) SettleOrder(ctx context.Context, serverID string, settled *order.Document) (*SettleResponse, error) {
	if strings.TrimSpace(serverID) == "" {
		return nil, ErrSettleBeforeCreate
	}
	if settled == nil || !settled.IsSettled() {
		return nil, ErrNotSettled
	}

	var resp billResponse
	if err := c.post(ctx, "settle", c.cfg.SettleURL, encodeSettle(serverID, settled), &resp); err != nil {
		return nil, err
	}

	id := resp.ID
	if id == "" {
		id = serverID
	}
	return &SettleResponse{
		ServerID:  id,
		Version:   resp.Version,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

// post sends body as JSON and decodes a 2xx response into out.
func (c *Client) post(ctx context.Context, op, url string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Prime-Language", c.cfg.Language)
	if c.cfg.ClientHeader != "" {
		req.Header.Set("X-Client", c.cfg.ClientHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    remoteMessage(resp.Status, respBody),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// remoteMessage prefers a message from a JSON error body and falls back to
// the HTTP status text.
func remoteMessage(status string, body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, m := range []string{e.Message, e.Error, e.Detail} {
			if m != "" {
				return m
			}
		}
	}

	// Status is "404 Not Found"; keep the text.
	if _, text, ok := strings.Cut(status, " "); ok {
		return text
	}
	return status
}
