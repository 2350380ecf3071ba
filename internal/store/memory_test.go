package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

func testRequest(user string) *model.RFQRequest {
	now := time.Now().UTC()
	return &model.RFQRequest{
		ID:          uuid.New(),
		UserAddress: user,
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      decimal.New(1, 18),
		ChainID:     1,
		Deadline:    now.Add(time.Minute),
		Status:      model.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemory_RequestRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	req := testRequest("0xuser")
	require.NoError(t, m.InsertRequest(ctx, req))

	assert.ErrorIs(t, m.InsertRequest(ctx, req), ErrDuplicate)

	got, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	missing, err := m.GetRequest(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	req := testRequest("0xuser")
	require.NoError(t, m.InsertRequest(ctx, req))

	got, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	got.Status = model.RequestFailed

	fresh, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, fresh.Status)
}

func TestMemory_UserIndex(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertRequest(ctx, testRequest("0xalpha")))
	require.NoError(t, m.InsertRequest(ctx, testRequest("0xalpha")))
	require.NoError(t, m.InsertRequest(ctx, testRequest("0xbeta")))

	alpha, err := m.ListRequestsByUser(ctx, "0xalpha")
	require.NoError(t, err)
	assert.Len(t, alpha, 2)

	none, err := m.ListRequestsByUser(ctx, "0xnobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_CountOpenRequests(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	open := testRequest("0xuser")
	require.NoError(t, m.InsertRequest(ctx, open))

	done := testRequest("0xuser")
	done.Status = model.RequestExecuted
	require.NoError(t, m.InsertRequest(ctx, done))

	n, err := m.CountOpenRequests(ctx, "0xuser")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_SwapRequestStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	req := testRequest("0xuser")
	require.NoError(t, m.InsertRequest(ctx, req))

	swapped, err := m.SwapRequestStatus(ctx, req.ID, model.RequestPending, model.RequestQuoted)
	require.NoError(t, err)
	assert.True(t, swapped)

	// Stale from-status loses the race.
	swapped, err = m.SwapRequestStatus(ctx, req.ID, model.RequestPending, model.RequestExpired)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, _ := m.GetRequest(ctx, req.ID)
	assert.Equal(t, model.RequestQuoted, got.Status)
}

func TestMemory_ExecutionUniquePerQuote(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	quoteID := uuid.New()
	first := &model.RFQExecution{
		ID:        uuid.New(),
		RequestID: uuid.New(),
		QuoteID:   quoteID,
		Status:    model.ExecutionPending,
	}
	require.NoError(t, m.InsertExecution(ctx, first))

	second := &model.RFQExecution{
		ID:        uuid.New(),
		RequestID: first.RequestID,
		QuoteID:   quoteID,
		Status:    model.ExecutionPending,
	}
	assert.ErrorIs(t, m.InsertExecution(ctx, second), ErrDuplicate)

	got, err := m.GetExecutionByQuote(ctx, quoteID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemory_SwapExecutionStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	e := &model.RFQExecution{
		ID:        uuid.New(),
		RequestID: uuid.New(),
		QuoteID:   uuid.New(),
		Status:    model.ExecutionPending,
	}
	require.NoError(t, m.InsertExecution(ctx, e))

	swapped, err := m.SwapExecutionStatus(ctx, e.ID, model.ExecutionPending, model.ExecutionConfirmed)
	require.NoError(t, err)
	assert.True(t, swapped)

	// Stale from-status loses the race.
	swapped, err = m.SwapExecutionStatus(ctx, e.ID, model.ExecutionPending, model.ExecutionFailed)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, _ := m.GetExecution(ctx, e.ID)
	assert.Equal(t, model.ExecutionConfirmed, got.Status)
}

func TestMemory_SwapPredicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now().UTC()
	p := &model.Predicate{
		ID:             uuid.New(),
		UserAddress:    "0xowner",
		OracleAddress:  "0xfeed",
		ChainID:        1,
		Tolerance:      2.0,
		PriceThreshold: decimal.NewFromInt(100),
		CurrentPrice:   decimal.NewFromInt(100),
		IsValid:        true,
		Status:         model.PredicateActive,
		ExpiresAt:      now.Add(time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, m.InsertPredicate(ctx, p))

	refreshed := p.Clone()
	refreshed.CurrentPrice = decimal.NewFromInt(105)
	refreshed.IsValid = false
	refreshed.Status = model.PredicateInvalid
	swapped, err := m.SwapPredicate(ctx, refreshed, model.PredicateActive)
	require.NoError(t, err)
	assert.True(t, swapped)

	got, _ := m.GetPredicate(ctx, p.ID)
	assert.Equal(t, model.PredicateInvalid, got.Status)
	assert.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(105)))

	// A write whose loaded status is stale leaves the record untouched.
	stale := p.Clone()
	stale.Status = model.PredicateActive
	swapped, err = m.SwapPredicate(ctx, stale, model.PredicateActive)
	require.NoError(t, err)
	assert.False(t, swapped)

	got, _ = m.GetPredicate(ctx, p.ID)
	assert.Equal(t, model.PredicateInvalid, got.Status)
}

func TestMemory_QuoteRequestIndex(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	requestID := uuid.New()
	for i := 0; i < 3; i++ {
		q := &model.RFQQuote{
			ID:        uuid.New(),
			RequestID: requestID,
			Status:    model.QuotePending,
		}
		require.NoError(t, m.InsertQuote(ctx, q))
	}
	other := &model.RFQQuote{ID: uuid.New(), RequestID: uuid.New(), Status: model.QuotePending}
	require.NoError(t, m.InsertQuote(ctx, other))

	quotes, err := m.ListQuotesByRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Len(t, quotes, 3)
}

func TestMemory_ResolverCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	bot := &model.ResolverBot{Address: "0xbot", Name: "bot", IsWhitelisted: true, IsOnline: true}
	require.NoError(t, m.InsertResolver(ctx, bot))
	assert.ErrorIs(t, m.InsertResolver(ctx, bot), ErrDuplicate)

	bot.IsOnline = false
	require.NoError(t, m.UpdateResolver(ctx, bot))
	got, err := m.GetResolver(ctx, "0xbot")
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	require.NoError(t, m.DeleteResolver(ctx, "0xbot"))
	got, err = m.GetResolver(ctx, "0xbot")
	require.NoError(t, err)
	assert.Nil(t, got)
}
