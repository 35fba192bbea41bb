// =============================================================================
// Statement Order Replay - HTTP API
// =============================================================================
//
// JSON service over the parser and the replay runner.
//
// ROUTES:
//   GET  /api/health       liveness
//   POST /api/statements   multipart upload ("file") -> parsed transactions
//   POST /api/orders       {mode, transactions} -> replay outcomes
//
// Replay batches are serialised: a second POST /api/orders waits for the
// first to finish.
//
// =============================================================================

package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/logging"
	"github.com/ginjaninja78/statement-order-replay/internal/replay"
	"github.com/ginjaninja78/statement-order-replay/internal/report"
	"github.com/ginjaninja78/statement-order-replay/internal/statement"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// dateLayout is the format of the start and end form fields.
const dateLayout = "2006-01-02"

// =============================================================================
// RESPONSES
// =============================================================================

// StatementResponse is the JSON response from POST /api/statements.
type StatementResponse struct {
	Success      bool                `json:"success"`
	Error        string              `json:"error,omitempty"`
	File         string              `json:"file,omitempty"`
	Transactions []types.Transaction `json:"transactions"`
	Count        int                 `json:"count"`
	HeaderRow    int                 `json:"headerRow"`
	Columns      statement.Columns   `json:"columns"`
	ParseStats   statement.Stats     `json:"parseStats"`
	Stats        report.Stats        `json:"stats"`
	Summary      report.SalesSummary `json:"summary"`
}

// OrdersRequest is the body of POST /api/orders.
type OrdersRequest struct {
	Mode         string              `json:"mode"`
	Transactions []types.Transaction `json:"transactions"`
}

// OrderResult is one replay outcome with its error flattened to text.
type OrderResult struct {
	replay.Outcome
	Error string `json:"error,omitempty"`
}

// OrdersResponse is the JSON response from POST /api/orders.
type OrdersResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Mode    replay.Mode   `json:"mode,omitempty"`
	Results []OrderResult `json:"results"`
	Stats   report.Stats  `json:"stats"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the dependencies of the API routes.
type Handler struct {
	// Parse holds the base parser options. Request fields override the
	// merchant keyword, match mode and date range.
	Parse statement.Options

	// Runners maps each enabled replay mode to its runner. A mode missing
	// from the map is rejected.
	Runners map[replay.Mode]*replay.Runner

	Logger logging.Logger

	// replay serialises batches across modes.
	replay sync.Mutex
}

// NewApp creates the fiber application with all routes registered.
func NewApp(h *Handler) *fiber.App {
	if h.Logger == nil {
		h.Logger = logging.Discard()
	}

	app := fiber.New(fiber.Config{
		AppName:               "statement-order-replay",
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the API routes on app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/statements", h.HandleStatements)
	app.Post("/api/orders", h.HandleOrders)
}

// HandleHealth reports liveness and the enabled replay modes.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	modes := make([]string, 0, len(h.Runners))
	for _, m := range []replay.Mode{replay.ModeAPI, replay.ModeAutomation} {
		if _, ok := h.Runners[m]; ok {
			modes = append(modes, string(m))
		}
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
		"modes":   modes,
	})
}

// HandleStatements parses an uploaded statement.
//
// FORM FIELDS:
//   - file:           .xlsx, .xlsm or .csv statement (required)
//   - sheet:          worksheet name (optional)
//   - merchant:       merchant keyword (optional, overrides config)
//   - match:          suffix or contains (optional)
//   - case_sensitive: "true" for a case-sensitive merchant match
//   - start, end:     inclusive YYYY-MM-DD bounds (optional)
func (h *Handler) HandleStatements(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}

	opts := h.Parse
	if merchant := strings.TrimSpace(c.FormValue("merchant")); merchant != "" {
		opts.MerchantKeyword = merchant
	}
	if match := c.FormValue("match"); match != "" {
		mode, err := statement.ParseMatchMode(match)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		opts.MatchMode = mode
	}
	if cs := c.FormValue("case_sensitive"); cs != "" {
		opts.CaseSensitive = cs == "true"
	}
	if opts.DateRange.Start, err = formDate(c, "start"); err != nil {
		return err
	}
	if opts.DateRange.End, err = formDate(c, "end"); err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}
	defer f.Close()

	grid, err := statement.ReadGridFrom(f, fh.Filename, c.FormValue("sheet"))
	if err != nil {
		if errors.Is(err, statement.ErrUnsupportedFormat) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	result, err := statement.Parse(grid, opts)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("%s: %v", fh.Filename, err))
	}

	h.Logger.Info("parsed uploaded statement",
		"file", fh.Filename,
		"transactions", len(result.Transactions),
		"skipped", result.Stats.Skipped,
	)

	return c.JSON(StatementResponse{
		Success:      true,
		File:         fh.Filename,
		Transactions: result.Transactions,
		Count:        len(result.Transactions),
		HeaderRow:    result.HeaderRow,
		Columns:      result.Columns,
		ParseStats:   result.Stats,
		Stats:        report.ComputeStats(result.Transactions),
		Summary:      report.Summarize(result.Transactions),
	})
}

// HandleOrders replays the posted transactions and returns one result per
// transaction, in request order.
func (h *Handler) HandleOrders(c *fiber.Ctx) error {
	var req OrdersRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Transactions) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no transactions to replay")
	}

	mode, err := replay.ParseMode(req.Mode)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	runner, ok := h.Runners[mode]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("replay mode %q is not configured", mode))
	}

	h.replay.Lock()
	start := time.Now()
	outcomes := runner.Run(c.UserContext(), req.Transactions)
	h.replay.Unlock()

	results := make([]OrderResult, len(outcomes))
	txns := make([]types.Transaction, len(outcomes))
	for i, o := range outcomes {
		results[i] = OrderResult{Outcome: o}
		if o.Err != nil {
			results[i].Error = o.Err.Error()
		}
		txns[i] = o.Transaction
	}

	stats := report.ComputeStats(txns)
	h.Logger.Info("replayed batch",
		"mode", mode,
		"transactions", stats.Total,
		"processed", stats.Processed,
		"failed", stats.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return c.JSON(OrdersResponse{
		Success: stats.Failed == 0,
		Mode:    mode,
		Results: results,
		Stats:   stats,
	})
}

// handleError renders every error as {"success":false,"error":...}.
func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		h.Logger.Error("request failed", "path", c.Path(), "err", err)
	}

	return c.Status(code).JSON(errorResponse{Success: false, Error: err.Error()})
}

// formDate parses an optional YYYY-MM-DD form field.
func formDate(c *fiber.Ctx, key string) (time.Time, error) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s date %q (want YYYY-MM-DD)", key, v))
	}
	return t, nil
}
