package rfq

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// --- Mock predicate checker ---

type mockPredicates struct {
	valid bool
	err   error
	calls int
}

func (m *mockPredicates) Validate(ctx context.Context, id uuid.UUID) (bool, error) {
	m.calls++
	return m.valid, m.err
}

// --- Test helpers ---

const (
	resolverA = "0xAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaa"
	resolverB = "0xBbbbBbbbBbbbBbbbBbbbBbbbBbbbBbbbBbbbBbbb"
	userAddr  = "0x1111111111111111111111111111111111111111"
)

func newTestEngine(t *testing.T, predicates PredicateChecker) (*Engine, store.Store, *registry.Registry) {
	t.Helper()

	st := store.NewMemory()
	reg := registry.New(st, zap.NewNop())

	for _, addr := range []string{resolverA, resolverB} {
		_, err := reg.AddResolverBot(context.Background(), registry.AddParams{
			Address: addr,
			Name:    "bot-" + addr[:6],
		})
		require.NoError(t, err)
	}

	if predicates == nil {
		predicates = &mockPredicates{valid: true}
	}

	cfg := DefaultConfig()
	cfg.RequestExpiry = time.Minute
	cfg.QuoteValidity = 30 * time.Second

	eng := NewEngine(cfg, st, reg, predicates, nil, nil, zap.NewNop())
	return eng, st, reg
}

func oneEther() decimal.Decimal {
	return decimal.New(1, 18) // 10^18 base units of an 18-decimal token
}

func createParams() CreateParams {
	return CreateParams{
		UserAddress:   userAddr,
		FromToken:     "USDC",
		ToToken:       "WETH",
		Amount:        oneEther(),
		TokenDecimals: 18,
		ChainID:       1,
		MaxSlippage:   0.5,
	}
}

func quoteParams(requestID uuid.UUID, resolver string, fee int64) QuoteParams {
	return QuoteParams{
		RequestID:       requestID,
		ResolverAddress: resolver,
		FromAmount:      oneEther(),
		ToAmount:        decimal.New(5, 17),
		Fee:             decimal.NewFromInt(fee),
		GasEstimate:     decimal.NewFromInt(10),
	}
}

// --- CreateRequest ---

func TestCreateRequest_Success(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	req, err := eng.CreateRequest(context.Background(), createParams())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.ID)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.True(t, req.Deadline.After(time.Now()))

	other, err := eng.CreateRequest(context.Background(), createParams())
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, other.ID)
}

// slowCountStore widens the count-to-insert window the way a durable
// backend's query latency would.
type slowCountStore struct {
	store.Store
}

func (s *slowCountStore) CountOpenRequests(ctx context.Context, userAddress string) (int, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.CountOpenRequests(ctx, userAddress)
}

func TestCreateRequest_ConcurrentCeiling(t *testing.T) {
	st := store.NewMemory()
	reg := registry.New(st, zap.NewNop())

	cfg := DefaultConfig()
	cfg.MaxOpenRequests = 1
	eng := NewEngine(cfg, &slowCountStore{Store: st}, reg, &mockPredicates{valid: true}, nil, nil, zap.NewNop())

	const attempts = 32
	var created int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.CreateRequest(context.Background(), createParams())
			if err == nil {
				atomic.AddInt64(&created, 1)
				return
			}
			assert.True(t, model.IsKind(err, model.KindStateConflict))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created)

	open, err := st.CountOpenRequests(context.Background(), userAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestCreateRequest_AmountBounds(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr string
	}{
		{name: "one token ok", amount: decimal.New(1, 18)},
		{name: "tenth of a token too small", amount: decimal.New(1, 17), wantErr: "Amount too small"},
		{name: "two million tokens too large", amount: decimal.New(2, 24), wantErr: "Amount too large"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := createParams()
			params.Amount = tc.amount
			_, err := eng.CreateRequest(context.Background(), params)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindValidation))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCreateRequest_MissingFields(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	_, err := eng.CreateRequest(context.Background(), CreateParams{})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidation))

	var de *model.Error
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Fields, "userAddress is required")
	assert.Contains(t, de.Fields, "fromToken is required")
}

func TestCreateRequest_OpenRequestCeiling(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	for i := 0; i < DefaultConfig().MaxOpenRequests; i++ {
		_, err := eng.CreateRequest(context.Background(), createParams())
		require.NoError(t, err)
	}

	_, err := eng.CreateRequest(context.Background(), createParams())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))

	// A different user is unaffected.
	params := createParams()
	params.UserAddress = "0x2222222222222222222222222222222222222222"
	_, err = eng.CreateRequest(context.Background(), params)
	assert.NoError(t, err)
}

// --- SubmitQuote ---

func TestSubmitQuote_TransitionsRequestToQuoted(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)
	assert.Equal(t, model.QuotePending, q.Status)

	stored, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestQuoted, stored.Status)

	// A second quote is allowed and leaves the request QUOTED.
	_, err = eng.SubmitQuote(ctx, quoteParams(req.ID, resolverB, 20))
	require.NoError(t, err)
	stored, _ = st.GetRequest(ctx, req.ID)
	assert.Equal(t, model.RequestQuoted, stored.Status)
}

func TestSubmitQuote_Whitelist(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	params := createParams()
	params.AllowedResolvers = []string{resolverA}
	req, err := eng.CreateRequest(ctx, params)
	require.NoError(t, err)

	_, err = eng.SubmitQuote(ctx, quoteParams(req.ID, resolverB, 10))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindAuthorization))

	_, err = eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	assert.NoError(t, err)
}

func TestSubmitQuote_UnregisteredResolver(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	_, err = eng.SubmitQuote(ctx, quoteParams(req.ID, "0xdeadbeef", 10))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindAuthorization))
}

func TestSubmitQuote_ExpiresStaleRequest(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	// Push the deadline into the past.
	req.Deadline = time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpdateRequest(ctx, req))

	_, err = eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))

	stored, _ := st.GetRequest(ctx, req.ID)
	assert.Equal(t, model.RequestExpired, stored.Status)

	// Quotes must never land on the expired request.
	quotes, err := st.ListQuotesByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestSubmitQuote_UnknownRequest(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	_, err := eng.SubmitQuote(context.Background(), quoteParams(uuid.New(), resolverA, 10))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

// --- GetQuotes ---

func TestGetQuotes_SortedByTotalCost(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	expensive, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 90)) // cost 100
	require.NoError(t, err)
	cheap, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverB, 80)) // cost 90
	require.NoError(t, err)

	quotes, err := eng.GetQuotes(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, cheap.ID, quotes[0].ID)
	assert.Equal(t, expensive.ID, quotes[1].ID)
}

func TestGetQuotes_FiltersExpiredWithoutMutating(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	q.ValidUntil = time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpdateQuote(ctx, q))

	quotes, err := eng.GetQuotes(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, quotes)

	// The read must not have swept the stale quote.
	stored, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuotePending, stored.Status)
}

// --- AcceptQuote ---

func TestAcceptQuote_Success(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	exec, err := eng.AcceptQuote(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionPending, exec.Status)
	assert.Equal(t, q.ID, exec.QuoteID)
	assert.Equal(t, req.ID, exec.RequestID)

	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteAccepted, storedQ.Status)
	storedR, _ := st.GetRequest(ctx, req.ID)
	assert.Equal(t, model.RequestExecuted, storedR.Status)
}

func TestAcceptQuote_SecondAcceptConflicts(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	first, err := eng.AcceptQuote(ctx, q.ID)
	require.NoError(t, err)

	_, err = eng.AcceptQuote(ctx, q.ID)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))

	// At most one execution exists for the quote.
	stored, err := st.GetExecutionByQuote(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestAcceptQuote_ExpiredQuote(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	q.ValidUntil = time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpdateQuote(ctx, q))

	_, err = eng.AcceptQuote(ctx, q.ID)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))
}

func TestAcceptQuote_PredicateGate(t *testing.T) {
	preds := &mockPredicates{valid: false}
	eng, _, _ := newTestEngine(t, preds)
	ctx := context.Background()

	pid := uuid.New()
	params := createParams()
	params.PredicateID = &pid

	req, err := eng.CreateRequest(ctx, params)
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	_, err = eng.AcceptQuote(ctx, q.ID)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))
	assert.Equal(t, 1, preds.calls, "acceptance must re-query the validator")

	// Price moved back into tolerance: the same quote is now acceptable.
	preds.valid = true
	_, err = eng.AcceptQuote(ctx, q.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, preds.calls)
}

func TestAcceptQuote_OracleFailureSurfacesUpstream(t *testing.T) {
	preds := &mockPredicates{err: model.ErrUpstream(model.CodeOracleTimeout, "oracle did not respond in time", nil)}
	eng, _, _ := newTestEngine(t, preds)
	ctx := context.Background()

	pid := uuid.New()
	params := createParams()
	params.PredicateID = &pid

	req, err := eng.CreateRequest(ctx, params)
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	_, err = eng.AcceptQuote(ctx, q.ID)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUpstream))
}

// --- UpdateExecutionStatus ---

func acceptedExecution(t *testing.T, eng *Engine) (*model.RFQExecution, *model.RFQQuote, *model.RFQRequest) {
	t.Helper()
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)
	exec, err := eng.AcceptQuote(ctx, q.ID)
	require.NoError(t, err)
	return exec, q, req
}

func TestUpdateExecutionStatus_ConfirmedCascades(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	exec, q, _ := acceptedExecution(t, eng)

	updated, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionConfirmed, ExecutionUpdate{
		TxHash:      "0xabc",
		BlockNumber: 123,
		GasUsed:     decimal.NewFromInt(21000),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionConfirmed, updated.Status)
	assert.Equal(t, "0xabc", updated.TxHash)

	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteExecuted, storedQ.Status)
}

func TestUpdateExecutionStatus_FailedCascades(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	exec, q, req := acceptedExecution(t, eng)

	_, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionFailed, ExecutionUpdate{
		Error: "reverted",
	})
	require.NoError(t, err)

	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteFailed, storedQ.Status)
	storedR, _ := st.GetRequest(ctx, req.ID)
	assert.Equal(t, model.RequestFailed, storedR.Status)
}

func TestUpdateExecutionStatus_IdempotentMerge(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	exec, _, _ := acceptedExecution(t, eng)

	_, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionConfirmed, ExecutionUpdate{TxHash: "0xabc"})
	require.NoError(t, err)

	// Same terminal status again merges new fields without error.
	updated, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionConfirmed, ExecutionUpdate{BlockNumber: 500})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", updated.TxHash)
	assert.Equal(t, int64(500), updated.BlockNumber)

	// A different terminal status is a conflict.
	_, err = eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionFailed, ExecutionUpdate{})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))
}

func TestUpdateExecutionStatus_Unknown(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)

	_, err := eng.UpdateExecutionStatus(context.Background(), uuid.New(), model.ExecutionConfirmed, ExecutionUpdate{})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestUpdateExecutionStatus_RecordsResolverOutcome(t *testing.T) {
	eng, _, reg := newTestEngine(t, nil)
	ctx := context.Background()

	exec, _, _ := acceptedExecution(t, eng)
	_, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionConfirmed, ExecutionUpdate{})
	require.NoError(t, err)

	bot, err := reg.GetResolverBot(ctx, resolverA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bot.TotalExecutions)
	assert.Equal(t, 1.0, bot.SuccessRate)
}

func TestUpdateExecutionStatus_ConcurrentReportsRecordOnce(t *testing.T) {
	eng, st, reg := newTestEngine(t, nil)
	ctx := context.Background()

	exec, q, _ := acceptedExecution(t, eng)

	// Settlement consumers can deliver the same report more than once;
	// only the first may cascade into the resolver's record.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.UpdateExecutionStatus(ctx, exec.ID, model.ExecutionConfirmed, ExecutionUpdate{TxHash: "0xabc"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := st.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionConfirmed, stored.Status)

	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteExecuted, storedQ.Status)

	bot, err := reg.GetResolverBot(ctx, resolverA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bot.TotalExecutions)
	assert.Equal(t, 1.0, bot.SuccessRate)
}

// --- CancelRequest ---

func TestCancelRequest(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	req, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(req.ID, resolverA, 10))
	require.NoError(t, err)

	_, err = eng.CancelRequest(ctx, req.ID, "0xnotowner")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindAuthorization))

	cancelled, err := eng.CancelRequest(ctx, req.ID, userAddr)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCancelled, cancelled.Status)

	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteRejected, storedQ.Status)

	_, err = eng.CancelRequest(ctx, req.ID, userAddr)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindStateConflict))
}

// --- CleanupExpired ---

func TestCleanupExpired_Idempotent(t *testing.T) {
	eng, st, _ := newTestEngine(t, nil)
	ctx := context.Background()

	live, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)

	stale, err := eng.CreateRequest(ctx, createParams())
	require.NoError(t, err)
	q, err := eng.SubmitQuote(ctx, quoteParams(stale.ID, resolverA, 10))
	require.NoError(t, err)

	stale, _ = st.GetRequest(ctx, stale.ID)
	stale.Deadline = time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpdateRequest(ctx, stale))
	q.ValidUntil = time.Now().UTC().Add(-time.Second)
	require.NoError(t, st.UpdateQuote(ctx, q))

	swept, err := eng.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	storedR, _ := st.GetRequest(ctx, stale.ID)
	assert.Equal(t, model.RequestExpired, storedR.Status)
	storedQ, _ := st.GetQuote(ctx, q.ID)
	assert.Equal(t, model.QuoteExpired, storedQ.Status)

	// Second run changes nothing.
	swept, err = eng.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)

	storedLive, _ := st.GetRequest(ctx, live.ID)
	assert.Equal(t, model.RequestPending, storedLive.Status)
}
