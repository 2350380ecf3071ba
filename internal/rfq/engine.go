package rfq

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/internal/rate"
	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
	"github.com/Checker-Finance/rfq-engine/pkg/utils"
)

// Config bounds request creation and sets the lifecycle windows. Amount
// bounds are in human token units; incoming amounts are base units and
// get normalized by token decimals before comparison.
type Config struct {
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	MinSlippage     float64
	MaxSlippage     float64
	RequestExpiry   time.Duration
	QuoteValidity   time.Duration
	MaxOpenRequests int
}

func DefaultConfig() Config {
	return Config{
		MinAmount:       decimal.NewFromInt(1),
		MaxAmount:       decimal.NewFromInt(1_000_000),
		MinSlippage:     0.01,
		MaxSlippage:     50.0,
		RequestExpiry:   5 * time.Minute,
		QuoteValidity:   30 * time.Second,
		MaxOpenRequests: 10,
	}
}

// PredicateChecker re-validates a predicate against the live oracle
// price. Called at acceptance time, never from a cached flag.
type PredicateChecker interface {
	Validate(ctx context.Context, id uuid.UUID) (bool, error)
}

// Events receives lifecycle notifications. Implementations must not
// block; publish failures are the implementation's problem, not the
// engine's.
type Events interface {
	RequestCreated(ctx context.Context, req *model.RFQRequest)
	RequestCancelled(ctx context.Context, req *model.RFQRequest)
	QuoteSubmitted(ctx context.Context, q *model.RFQQuote, req *model.RFQRequest)
	QuoteAccepted(ctx context.Context, q *model.RFQQuote, exec *model.RFQExecution)
	ExecutionUpdated(ctx context.Context, exec *model.RFQExecution)
}

type noopEvents struct{}

func (noopEvents) RequestCreated(context.Context, *model.RFQRequest) {}
func (noopEvents) RequestCancelled(context.Context, *model.RFQRequest) {}
func (noopEvents) QuoteSubmitted(context.Context, *model.RFQQuote, *model.RFQRequest) {}
func (noopEvents) QuoteAccepted(context.Context, *model.RFQQuote, *model.RFQExecution) {}
func (noopEvents) ExecutionUpdated(context.Context, *model.RFQExecution) {}

// Engine is the central RFQ state machine: it accepts requests, collects
// competing quotes, ranks them, accepts one, and tracks the execution
// spawned by acceptance.
//
// mu serializes the critical sections that must be atomic: the
// createRequest ceiling count-and-insert, the submitQuote deadline
// check-and-expire and the acceptQuote winner selection. Oracle I/O
// (predicate validation) always happens outside the lock.
type Engine struct {
	cfg        Config
	requests   store.RequestStore
	quotes     store.QuoteStore
	executions store.ExecutionStore
	registry   *registry.Registry
	predicates PredicateChecker
	rateMgr    *rate.Manager
	events     Events
	logger     *zap.Logger

	mu sync.Mutex
}

func NewEngine(
	cfg Config,
	st store.Store,
	reg *registry.Registry,
	predicates PredicateChecker,
	rateMgr *rate.Manager,
	events Events,
	logger *zap.Logger,
) *Engine {
	if events == nil {
		events = noopEvents{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		requests:   st,
		quotes:     st,
		executions: st,
		registry:   reg,
		predicates: predicates,
		rateMgr:    rateMgr,
		events:     events,
		logger:     logger,
	}
}

// CreateParams carries the fields for opening an RFQ request.
type CreateParams struct {
	UserAddress      string
	FromToken        string
	ToToken          string
	Amount           decimal.Decimal
	TokenDecimals    int32
	ChainID          int64
	AllowedResolvers []string
	MaxSlippage      float64
	PredicateID      *uuid.UUID
}

// CreateRequest validates and stores a new request in PENDING with
// deadline = now + requestExpiry.
func (e *Engine) CreateRequest(ctx context.Context, params CreateParams) (*model.RFQRequest, error) {
	var fields []string
	if params.UserAddress == "" {
		fields = append(fields, "userAddress is required")
	}
	if params.FromToken == "" {
		fields = append(fields, "fromToken is required")
	}
	if params.ToToken == "" {
		fields = append(fields, "toToken is required")
	}
	if params.FromToken != "" && params.FromToken == params.ToToken {
		fields = append(fields, "fromToken and toToken must differ")
	}
	if params.ChainID <= 0 {
		fields = append(fields, "chainId is required")
	}
	if params.MaxSlippage < e.cfg.MinSlippage || params.MaxSlippage > e.cfg.MaxSlippage {
		fields = append(fields, fmt.Sprintf("maxSlippage must be within [%.2f, %.2f]", e.cfg.MinSlippage, e.cfg.MaxSlippage))
	}
	if !params.Amount.IsPositive() {
		fields = append(fields, "amount must be positive")
	} else {
		human := utils.ToHumanUnits(params.Amount, params.TokenDecimals)
		if human.LessThan(e.cfg.MinAmount) {
			fields = append(fields, "Amount too small")
		} else if human.GreaterThan(e.cfg.MaxAmount) {
			fields = append(fields, "Amount too large")
		}
	}
	if len(fields) > 0 {
		return nil, model.ErrValidation(fields...)
	}

	// Count and insert under the lock; concurrent creates for the same
	// user must not all observe the same pre-insert count.
	e.mu.Lock()
	defer e.mu.Unlock()

	open, err := e.requests.CountOpenRequests(ctx, params.UserAddress)
	if err != nil {
		return nil, err
	}
	if open >= e.cfg.MaxOpenRequests {
		return nil, model.ErrConflict(fmt.Sprintf("open request limit reached (%d)", e.cfg.MaxOpenRequests))
	}

	now := time.Now().UTC()
	req := &model.RFQRequest{
		ID:               uuid.New(),
		UserAddress:      params.UserAddress,
		FromToken:        params.FromToken,
		ToToken:          params.ToToken,
		Amount:           params.Amount,
		TokenDecimals:    params.TokenDecimals,
		ChainID:          params.ChainID,
		Deadline:         now.Add(e.cfg.RequestExpiry),
		Status:           model.RequestPending,
		AllowedResolvers: params.AllowedResolvers,
		MaxSlippage:      params.MaxSlippage,
		PredicateID:      params.PredicateID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.requests.InsertRequest(ctx, req); err != nil {
		return nil, err
	}

	metrics.RequestsCreatedTotal.WithLabelValues(req.Pair()).Inc()
	e.logger.Info("rfq.request_created",
		zap.String("request_id", req.ID.String()),
		zap.String("user", utils.ShortAddress(req.UserAddress)),
		zap.String("pair", req.Pair()),
		zap.String("amount", req.Amount.String()),
	)
	e.events.RequestCreated(ctx, req)
	return req, nil
}

// QuoteParams carries the fields for submitting a quote.
type QuoteParams struct {
	RequestID       uuid.UUID
	ResolverAddress string
	FromAmount      decimal.Decimal
	ToAmount        decimal.Decimal
	Fee             decimal.Decimal
	GasEstimate     decimal.Decimal
	PriceImpact     float64
}

// SubmitQuote appends a resolver's quote to a live request. A request
// found past its deadline is expired here and the call fails; the
// check-expire-fail sequence runs under the engine lock so a quote can
// never land on an already-expired request.
func (e *Engine) SubmitQuote(ctx context.Context, params QuoteParams) (*model.RFQQuote, error) {
	var fields []string
	if params.ResolverAddress == "" {
		fields = append(fields, "resolverAddress is required")
	}
	if !params.FromAmount.IsPositive() {
		fields = append(fields, "fromAmount must be positive")
	}
	if !params.ToAmount.IsPositive() {
		fields = append(fields, "toAmount must be positive")
	}
	if params.Fee.IsNegative() {
		fields = append(fields, "fee must not be negative")
	}
	if params.GasEstimate.IsNegative() {
		fields = append(fields, "gasEstimate must not be negative")
	}
	if len(fields) > 0 {
		return nil, model.ErrValidation(fields...)
	}

	ok, err := e.registry.Validate(ctx, params.ResolverAddress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrAuthorization("resolver is not whitelisted or offline: " + params.ResolverAddress)
	}

	if e.rateMgr != nil && !e.rateMgr.Allow(params.ResolverAddress) {
		return nil, model.ErrConflict("quote rate limit exceeded for resolver " + params.ResolverAddress)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrNotFound("request", params.RequestID.String())
	}
	if req.Status != model.RequestPending && req.Status != model.RequestQuoted {
		return nil, model.ErrConflict(fmt.Sprintf("request %s is %s", req.ID, req.Status))
	}

	now := time.Now().UTC()
	if !now.Before(req.Deadline) {
		if _, err := e.requests.SwapRequestStatus(ctx, req.ID, req.Status, model.RequestExpired); err != nil {
			return nil, err
		}
		return nil, model.ErrConflict(fmt.Sprintf("request %s has expired", req.ID))
	}

	if !req.AllowsResolver(params.ResolverAddress) {
		return nil, model.ErrAuthorization("resolver not in the request's allowed set: " + params.ResolverAddress)
	}

	q := &model.RFQQuote{
		ID:              uuid.New(),
		RequestID:       req.ID,
		ResolverAddress: params.ResolverAddress,
		FromAmount:      params.FromAmount,
		ToAmount:        params.ToAmount,
		Fee:             params.Fee,
		GasEstimate:     params.GasEstimate,
		PriceImpact:     params.PriceImpact,
		ValidUntil:      now.Add(e.cfg.QuoteValidity),
		Status:          model.QuotePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.quotes.InsertQuote(ctx, q); err != nil {
		return nil, err
	}

	// Only the first quote moves the request; later quotes leave it QUOTED.
	if req.Status == model.RequestPending {
		if _, err := e.requests.SwapRequestStatus(ctx, req.ID, model.RequestPending, model.RequestQuoted); err != nil {
			return nil, err
		}
	}

	metrics.QuotesSubmittedTotal.WithLabelValues(params.ResolverAddress).Inc()
	e.logger.Info("rfq.quote_submitted",
		zap.String("response_id", q.ID.String()),
		zap.String("request_id", req.ID.String()),
		zap.String("resolver", utils.ShortAddress(q.ResolverAddress)),
		zap.String("total_cost", q.TotalCost().String()),
	)
	e.events.QuoteSubmitted(ctx, q, req)
	return q, nil
}

// GetQuotes returns the request's quotes that are still PENDING and
// unexpired, cheapest total cost first, ties broken by earliest
// submission. Read-only; stale quotes are left for the sweeper.
func (e *Engine) GetQuotes(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error) {
	req, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrNotFound("request", requestID.String())
	}

	quotes, err := e.quotes.ListQuotesByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live := make([]*model.RFQQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.Status != model.QuotePending || q.ExpiredAt(now) {
			continue
		}
		live = append(live, q)
	}

	sortQuotes(live)
	return live, nil
}

func sortQuotes(quotes []*model.RFQQuote) {
	sort.SliceStable(quotes, func(a, b int) bool {
		cmp := quotes[a].TotalCost().Cmp(quotes[b].TotalCost())
		if cmp != 0 {
			return cmp < 0
		}
		return quotes[a].CreatedAt.Before(quotes[b].CreatedAt)
	})
}

// AcceptQuote selects the winner for a request. Exactly one acceptance
// succeeds per quote; concurrent attempts lose with a conflict error and
// never create a second execution. The predicate is re-validated against
// the live oracle price before the critical section.
func (e *Engine) AcceptQuote(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error) {
	q, err := e.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, model.ErrNotFound("response", quoteID.String())
	}

	req, err := e.requests.GetRequest(ctx, q.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrNotFound("request", q.RequestID.String())
	}

	// Price can move between quoting and acceptance, so the predicate is
	// checked now, against a fresh oracle reading. The fetch may block on
	// the network and therefore runs before the lock.
	if req.PredicateID != nil {
		valid, err := e.predicates.Validate(ctx, *req.PredicateID)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, model.ErrConflict(fmt.Sprintf("predicate %s does not validate", req.PredicateID))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-read under the lock; a concurrent winner may have beaten us.
	q, err = e.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuotePending {
		metrics.AcceptConflictsTotal.Inc()
		return nil, model.ErrConflict(fmt.Sprintf("response %s is %s", q.ID, q.Status))
	}
	now := time.Now().UTC()
	if q.ExpiredAt(now) {
		return nil, model.ErrConflict(fmt.Sprintf("response %s has expired", q.ID))
	}

	req, err = e.requests.GetRequest(ctx, q.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, model.ErrConflict(fmt.Sprintf("request %s is %s", req.ID, req.Status))
	}

	exec := &model.RFQExecution{
		ID:        uuid.New(),
		RequestID: q.RequestID,
		QuoteID:   q.ID,
		Status:    model.ExecutionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.executions.InsertExecution(ctx, exec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.AcceptConflictsTotal.Inc()
			return nil, model.ErrConflict(fmt.Sprintf("response %s already has an execution", q.ID))
		}
		return nil, err
	}

	if _, err := e.quotes.SwapQuoteStatus(ctx, q.ID, model.QuotePending, model.QuoteAccepted); err != nil {
		return nil, err
	}
	if _, err := e.requests.SwapRequestStatus(ctx, req.ID, req.Status, model.RequestExecuted); err != nil {
		return nil, err
	}

	metrics.QuotesAcceptedTotal.WithLabelValues(q.ResolverAddress).Inc()
	e.logger.Info("rfq.quote_accepted",
		zap.String("execution_id", exec.ID.String()),
		zap.String("response_id", q.ID.String()),
		zap.String("request_id", req.ID.String()),
		zap.String("resolver", utils.ShortAddress(q.ResolverAddress)),
	)
	e.events.QuoteAccepted(ctx, q, exec)
	return exec, nil
}

// ExecutionUpdate carries settlement fields reported by the executor.
type ExecutionUpdate struct {
	TxHash      string
	BlockNumber int64
	GasUsed     decimal.Decimal
	Error       string
}

// UpdateExecutionStatus merges settlement data into the execution record
// and cascades terminal outcomes to the quote and request. Repeating the
// same terminal report is a no-op merge, not an error. The cascade is
// gated on winning the status CAS, so concurrent duplicate reports never
// double-count a resolver's execution record.
func (e *Engine) UpdateExecutionStatus(ctx context.Context, executionID uuid.UUID, status model.ExecutionStatus, update ExecutionUpdate) (*model.RFQExecution, error) {
	exec, err := e.executions.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, model.ErrNotFound("execution", executionID.String())
	}
	if exec.Status.Terminal() && exec.Status != status {
		return nil, model.ErrConflict(fmt.Sprintf("execution %s is already %s", exec.ID, exec.Status))
	}
	prev := exec.Status

	exec.Status = status
	if update.TxHash != "" {
		exec.TxHash = update.TxHash
	}
	if update.BlockNumber != 0 {
		exec.BlockNumber = update.BlockNumber
	}
	if update.GasUsed.IsPositive() {
		exec.GasUsed = update.GasUsed
	}
	if update.Error != "" {
		exec.Error = update.Error
	}
	exec.UpdatedAt = time.Now().UTC()

	cascaded := false
	if !prev.Terminal() && prev != status {
		swapped, err := e.executions.SwapExecutionStatus(ctx, exec.ID, prev, status)
		if err != nil {
			return nil, err
		}
		if !swapped {
			// A concurrent report transitioned this execution first. The
			// same outcome merges like a repeat; a different one conflicts.
			cur, err := e.executions.GetExecution(ctx, exec.ID)
			if err != nil {
				return nil, err
			}
			if cur == nil || cur.Status != status {
				got := "gone"
				if cur != nil {
					got = string(cur.Status)
				}
				return nil, model.ErrConflict(fmt.Sprintf("execution %s is already %s", exec.ID, got))
			}
		} else {
			cascaded = true
		}
	}

	if err := e.executions.UpdateExecution(ctx, exec); err != nil {
		return nil, err
	}

	// Only the report that won the transition cascades; repeats and
	// losers of the race merge fields only.
	if cascaded {
		if err := e.cascade(ctx, exec, status); err != nil {
			return nil, err
		}
	}

	e.logger.Info("rfq.execution_updated",
		zap.String("execution_id", exec.ID.String()),
		zap.String("status", string(status)),
		zap.String("tx_hash", exec.TxHash),
	)
	e.events.ExecutionUpdated(ctx, exec)
	return exec, nil
}

func (e *Engine) cascade(ctx context.Context, exec *model.RFQExecution, status model.ExecutionStatus) error {
	q, err := e.quotes.GetQuote(ctx, exec.QuoteID)
	if err != nil {
		return err
	}

	switch status {
	case model.ExecutionConfirmed:
		if _, err := e.quotes.SwapQuoteStatus(ctx, exec.QuoteID, model.QuoteAccepted, model.QuoteExecuted); err != nil {
			return err
		}
	case model.ExecutionFailed:
		if _, err := e.quotes.SwapQuoteStatus(ctx, exec.QuoteID, model.QuoteAccepted, model.QuoteFailed); err != nil {
			return err
		}
		if _, err := e.requests.SwapRequestStatus(ctx, exec.RequestID, model.RequestExecuted, model.RequestFailed); err != nil {
			return err
		}
	case model.ExecutionCancelled:
		if _, err := e.quotes.SwapQuoteStatus(ctx, exec.QuoteID, model.QuoteAccepted, model.QuoteRejected); err != nil {
			return err
		}
		if _, err := e.requests.SwapRequestStatus(ctx, exec.RequestID, model.RequestExecuted, model.RequestCancelled); err != nil {
			return err
		}
	}

	if q != nil && (status == model.ExecutionConfirmed || status == model.ExecutionFailed) {
		if err := e.registry.RecordExecution(ctx, q.ResolverAddress, status == model.ExecutionConfirmed); err != nil {
			e.logger.Warn("rfq.record_execution_failed",
				zap.String("resolver", utils.ShortAddress(q.ResolverAddress)),
				zap.Error(err))
		}
	}
	return nil
}

// CancelRequest cancels an open request; only its owner may do so.
// Pending quotes on the request are rejected.
func (e *Engine) CancelRequest(ctx context.Context, requestID uuid.UUID, userAddress string) (*model.RFQRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := e.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.ErrNotFound("request", requestID.String())
	}
	if req.UserAddress != userAddress {
		return nil, model.ErrAuthorization("request belongs to a different user")
	}
	if req.Status != model.RequestPending && req.Status != model.RequestQuoted {
		return nil, model.ErrConflict(fmt.Sprintf("request %s is %s", req.ID, req.Status))
	}

	if _, err := e.requests.SwapRequestStatus(ctx, req.ID, req.Status, model.RequestCancelled); err != nil {
		return nil, err
	}
	req.Status = model.RequestCancelled

	quotes, err := e.quotes.ListQuotesByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		if q.Status != model.QuotePending {
			continue
		}
		if _, err := e.quotes.SwapQuoteStatus(ctx, q.ID, model.QuotePending, model.QuoteRejected); err != nil {
			e.logger.Warn("rfq.quote_reject_failed",
				zap.String("response_id", q.ID.String()),
				zap.Error(err))
		}
	}

	e.logger.Info("rfq.request_cancelled", zap.String("request_id", req.ID.String()))
	e.events.RequestCancelled(ctx, req)
	return req, nil
}

// CleanupExpired sweeps PENDING/QUOTED requests past their deadline and
// PENDING quotes past their validity window to EXPIRED. Idempotent and
// safe to run concurrently with traffic; CAS keeps it from clobbering a
// transition made by submit or accept.
func (e *Engine) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	swept := 0

	requests, err := e.requests.ListRequests(ctx)
	if err != nil {
		return 0, err
	}
	reqSwept := 0
	for _, req := range requests {
		if req.Status != model.RequestPending && req.Status != model.RequestQuoted {
			continue
		}
		if now.Before(req.Deadline) {
			continue
		}
		swapped, err := e.requests.SwapRequestStatus(ctx, req.ID, req.Status, model.RequestExpired)
		if err != nil {
			e.logger.Warn("rfq.request_sweep_failed",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
			continue
		}
		if swapped {
			reqSwept++
		}
	}

	quotes, err := e.quotes.ListQuotes(ctx)
	if err != nil {
		return reqSwept, err
	}
	quoteSwept := 0
	for _, q := range quotes {
		if q.Status != model.QuotePending || !q.ExpiredAt(now) {
			continue
		}
		swapped, err := e.quotes.SwapQuoteStatus(ctx, q.ID, model.QuotePending, model.QuoteExpired)
		if err != nil {
			e.logger.Warn("rfq.quote_sweep_failed",
				zap.String("response_id", q.ID.String()),
				zap.Error(err))
			continue
		}
		if swapped {
			quoteSwept++
		}
	}

	metrics.IncSwept("request", reqSwept)
	metrics.IncSwept("quote", quoteSwept)
	swept = reqSwept + quoteSwept
	if swept > 0 {
		e.logger.Info("rfq.sweep_completed",
			zap.Int("requests", reqSwept),
			zap.Int("quotes", quoteSwept),
		)
	}
	return swept, nil
}
