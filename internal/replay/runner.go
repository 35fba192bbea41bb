// =============================================================================
// Statement Order Replay - Replay Runner
// =============================================================================
//
// The runner books parsed transactions on the point of sale, one at a time.
//
// BATCH WORKFLOW:
//   For each transaction, in order:
//     1. Stop if the batch context is cancelled; the rest stay pending.
//     2. Wait for the pacing limiter.
//     3. Realise the order on a context detached from batch cancellation:
//          api:        build -> create -> settle (settle only after create)
//          automation: executor books it through the POS UI
//     4. Record success or failure on the transaction and continue.
//
// CONCURRENCY:
//   Transactions are never processed in parallel. The POS backend has no
//   idempotency key and kitchen tickets must be created in order. A Runner
//   serialises concurrent Run calls.
//
// =============================================================================

package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/statement-order-replay/internal/automation"
	"github.com/ginjaninja78/statement-order-replay/internal/logging"
	"github.com/ginjaninja78/statement-order-replay/internal/order"
	"github.com/ginjaninja78/statement-order-replay/internal/posclient"
	"github.com/ginjaninja78/statement-order-replay/internal/types"
	"golang.org/x/time/rate"
)

// =============================================================================
// MODES AND DEPENDENCIES
// =============================================================================

// Mode selects how orders are realised.
type Mode string

const (
	// ModeAPI creates and settles orders through the POS HTTP API.
	ModeAPI Mode = "api"

	// ModeAutomation books orders through the automation service.
	ModeAutomation Mode = "automation"
)

// ParseMode validates a mode name. Empty selects ModeAPI.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAPI:
		return ModeAPI, nil
	case ModeAutomation:
		return ModeAutomation, nil
	default:
		return "", fmt.Errorf("unknown replay mode %q (want api or automation)", s)
	}
}

// ErrAlreadyAttempted is reported for a transaction the runner has already
// tried to book. Replaying it could create a duplicate remote order.
var ErrAlreadyAttempted = errors.New("transaction was already replayed")

// DocumentBuilder builds order documents from transactions.
type DocumentBuilder interface {
	Build(txn types.Transaction) (*order.Document, error)
}

// OrderClient creates and settles orders remotely.
type OrderClient interface {
	CreateOrder(ctx context.Context, doc *order.Document) (*posclient.CreateResponse, error)
	SettleOrder(ctx context.Context, serverID string, settled *order.Document) (*posclient.SettleResponse, error)
}

// Dependencies are the collaborators a runner uses. Builder and Client are
// required for ModeAPI and Executor for ModeAutomation.
type Dependencies struct {
	Builder  DocumentBuilder
	Client   OrderClient
	Executor automation.Executor
	Logger   logging.Logger

	// Now is the settlement clock. Default: time.Now.
	Now func() time.Time
}

// Config controls a runner.
type Config struct {
	Mode Mode

	// Delay is the minimum gap between the start of successive transactions.
	Delay time.Duration

	// Settler is recorded as the actor of the settlement audit entry.
	Settler order.Actor

	// Automation settings, used in ModeAutomation.
	Credentials       automation.Credentials
	Headless          bool
	AutomationTimeout time.Duration

	// DryRun builds and settles documents locally without any remote call.
	DryRun bool
}

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the result of replaying one transaction.
type Outcome struct {
	// Transaction carries the updated status and error message.
	Transaction types.Transaction `json:"transaction"`

	Mode Mode `json:"mode"`

	// ServerID and SettledVersion are set in ModeAPI once known.
	ServerID       string `json:"serverId,omitempty"`
	SettledVersion int    `json:"settledVersion,omitempty"`

	// OrderID and Screenshot are reported by the automation service.
	OrderID    string `json:"orderId,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`

	// Document is the settled document in ModeAPI (including dry runs).
	Document *order.Document `json:"document,omitempty"`

	// Skipped means the transaction was not attempted, either because the
	// batch was cancelled or because it had been attempted before.
	Skipped bool `json:"skipped,omitempty"`
	DryRun  bool `json:"dryRun,omitempty"`

	Duration time.Duration `json:"duration"`

	// Err is the failure, if any. Its message is also in Transaction.ErrorMessage.
	Err error `json:"-"`
}

// Succeeded reports whether the order was booked.
func (o Outcome) Succeeded() bool {
	return !o.Skipped && o.Err == nil && o.Transaction.Status == types.StatusSuccess
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner replays transactions sequentially with pacing.
type Runner struct {
	cfg     Config
	deps    Dependencies
	limiter *rate.Limiter

	// run serialises batches.
	run sync.Mutex

	mu        sync.Mutex
	attempted map[string]struct{}
}

// NewRunner checks that the dependencies needed by cfg.Mode are present.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeAPI
	}

	switch cfg.Mode {
	case ModeAPI:
		if deps.Builder == nil {
			return nil, errors.New("api mode requires a document builder")
		}
		if deps.Client == nil && !cfg.DryRun {
			return nil, errors.New("api mode requires an order client")
		}
	case ModeAutomation:
		if deps.Executor == nil && !cfg.DryRun {
			return nil, errors.New("automation mode requires an executor")
		}
	default:
		return nil, fmt.Errorf("unknown replay mode %q", cfg.Mode)
	}

	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &Runner{
		cfg:       cfg,
		deps:      deps,
		limiter:   rate.NewLimiter(limit, 1),
		attempted: make(map[string]struct{}),
	}, nil
}

// Mode returns the runner's mode.
func (r *Runner) Mode() Mode {
	return r.cfg.Mode
}

// Run replays txns in order and returns one outcome per transaction, in the
// same order. Failures are recorded per transaction and never abort the
// batch. Cancelling ctx stops the batch between transactions; the
// transaction in flight always runs to completion.
func (r *Runner) Run(ctx context.Context, txns []types.Transaction) []Outcome {
	r.run.Lock()
	defer r.run.Unlock()

	outcomes := make([]Outcome, len(txns))

	for i, txn := range txns {
		if err := ctx.Err(); err != nil {
			r.skipRemaining(outcomes, txns, i, err)
			break
		}

		if r.alreadyAttempted(txn.ID) {
			r.deps.Logger.Warn("refusing to replay transaction twice", "id", txn.ID)
			outcomes[i] = Outcome{Transaction: txn, Mode: r.cfg.Mode, Skipped: true, Err: ErrAlreadyAttempted}
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			r.skipRemaining(outcomes, txns, i, err)
			break
		}

		outcomes[i] = r.replayOne(context.WithoutCancel(ctx), txn)
	}

	return outcomes
}

// skipRemaining marks txns[from:] as not attempted.
func (r *Runner) skipRemaining(outcomes []Outcome, txns []types.Transaction, from int, cause error) {
	r.deps.Logger.Warn("replay cancelled", "remaining", len(txns)-from, "cause", cause)

	for j := from; j < len(txns); j++ {
		txn := txns[j]
		txn.Status = types.StatusPending
		txn.ErrorMessage = ""
		outcomes[j] = Outcome{Transaction: txn, Mode: r.cfg.Mode, Skipped: true}
	}
}

// alreadyAttempted records id and reports whether it was recorded before.
// Transactions without an id are never deduplicated.
func (r *Runner) alreadyAttempted(id string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.attempted[id]; ok {
		return true
	}
	if !r.cfg.DryRun {
		r.attempted[id] = struct{}{}
	}
	return false
}

// replayOne realises one transaction and records the result on it.
func (r *Runner) replayOne(ctx context.Context, txn types.Transaction) Outcome {
	start := time.Now()
	out := Outcome{Mode: r.cfg.Mode, DryRun: r.cfg.DryRun}

	var err error
	switch r.cfg.Mode {
	case ModeAutomation:
		err = r.viaAutomation(ctx, txn, &out)
	default:
		err = r.viaAPI(ctx, txn, &out)
	}

	out.Duration = time.Since(start)
	out.Err = err

	if err != nil {
		txn.MarkFailed(err.Error())
		r.deps.Logger.Error("replay failed", "id", txn.ID, "row", txn.SourceRow, "amount", txn.PaidAmount, "err", err)
	} else {
		if !r.cfg.DryRun {
			txn.MarkSucceeded()
		}
		r.deps.Logger.Info("replayed transaction",
			"id", txn.ID,
			"amount", txn.PaidAmount,
			"server_id", out.ServerID,
			"order_id", out.OrderID,
			"dry_run", r.cfg.DryRun,
		)
	}

	out.Transaction = txn
	return out
}

// viaAPI builds, creates and settles the order. Settle is only attempted
// after a successful create.
func (r *Runner) viaAPI(ctx context.Context, txn types.Transaction, out *Outcome) error {
	doc, err := r.deps.Builder.Build(txn)
	if err != nil {
		return fmt.Errorf("build order: %w", err)
	}

	if r.cfg.DryRun {
		settled, err := order.Settle(doc, r.deps.Now(), r.cfg.Settler)
		if err != nil {
			return fmt.Errorf("settle order: %w", err)
		}
		out.Document = settled
		out.SettledVersion = settled.Version
		return nil
	}

	created, err := r.deps.Client.CreateOrder(ctx, doc)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	out.ServerID = created.ServerID

	settled, err := order.Settle(doc, r.deps.Now(), r.cfg.Settler)
	if err != nil {
		return fmt.Errorf("order %s created but not settled: %w", created.ServerID, err)
	}
	out.Document = settled

	if _, err := r.deps.Client.SettleOrder(ctx, created.ServerID, settled); err != nil {
		return fmt.Errorf("order %s created but not settled: %w", created.ServerID, err)
	}
	out.SettledVersion = settled.Version

	return nil
}

// viaAutomation books the order through the automation executor.
func (r *Runner) viaAutomation(ctx context.Context, txn types.Transaction, out *Outcome) error {
	if r.cfg.DryRun {
		return nil
	}

	result, err := r.deps.Executor.Execute(ctx, automation.Request{
		Transaction: txn,
		Credentials: r.cfg.Credentials,
		Headless:    r.cfg.Headless,
		Timeout:     r.cfg.AutomationTimeout,
	})
	if err != nil {
		return err
	}

	out.OrderID = result.OrderID
	out.Screenshot = result.Screenshot
	return result.Err()
}
