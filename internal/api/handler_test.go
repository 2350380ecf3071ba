package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/rfq"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

type mockService struct {
	createRequestFn   func(ctx context.Context, params rfq.CreateParams) (*model.RFQRequest, error)
	submitQuoteFn     func(ctx context.Context, params rfq.QuoteParams) (*model.RFQQuote, error)
	getQuotesFn       func(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error)
	acceptQuoteFn     func(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error)
	updateExecutionFn func(ctx context.Context, executionID uuid.UUID, status model.ExecutionStatus, update rfq.ExecutionUpdate) (*model.RFQExecution, error)
	cancelRequestFn   func(ctx context.Context, requestID uuid.UUID, userAddress string) (*model.RFQRequest, error)
	queryRequestsFn   func(ctx context.Context, filter model.RequestFilter) ([]*model.RFQRequest, int, error)
	getStatsFn        func(ctx context.Context) (*rfq.Stats, error)
}

func (m *mockService) CreateRequest(ctx context.Context, params rfq.CreateParams) (*model.RFQRequest, error) {
	return m.createRequestFn(ctx, params)
}

func (m *mockService) SubmitQuote(ctx context.Context, params rfq.QuoteParams) (*model.RFQQuote, error) {
	return m.submitQuoteFn(ctx, params)
}

func (m *mockService) GetQuotes(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error) {
	return m.getQuotesFn(ctx, requestID)
}

func (m *mockService) AcceptQuote(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error) {
	return m.acceptQuoteFn(ctx, quoteID)
}

func (m *mockService) UpdateExecutionStatus(ctx context.Context, executionID uuid.UUID, status model.ExecutionStatus, update rfq.ExecutionUpdate) (*model.RFQExecution, error) {
	return m.updateExecutionFn(ctx, executionID, status, update)
}

func (m *mockService) CancelRequest(ctx context.Context, requestID uuid.UUID, userAddress string) (*model.RFQRequest, error) {
	return m.cancelRequestFn(ctx, requestID, userAddress)
}

func (m *mockService) QueryRequests(ctx context.Context, filter model.RequestFilter) ([]*model.RFQRequest, int, error) {
	return m.queryRequestsFn(ctx, filter)
}

func (m *mockService) GetStats(ctx context.Context) (*rfq.Stats, error) {
	return m.getStatsFn(ctx)
}

func newTestApp(svc *mockService) *fiber.App {
	h := NewRFQHandler(zap.NewNop(), svc)
	app := fiber.New()
	app.Post("/requests", h.CreateRequestHandler)
	app.Get("/requests", h.QueryRequestsHandler)
	app.Post("/requests/:requestId/cancel", h.CancelRequestHandler)
	app.Get("/requests/:requestId/quotes", h.GetQuotesHandler)
	app.Post("/quotes", h.SubmitQuoteHandler)
	app.Post("/quotes/:responseId/accept", h.AcceptQuoteHandler)
	app.Put("/executions/:executionId", h.UpdateExecutionHandler)
	app.Get("/stats", h.GetStatsHandler)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreateRequestHandler(t *testing.T) {
	svc := &mockService{
		createRequestFn: func(ctx context.Context, params rfq.CreateParams) (*model.RFQRequest, error) {
			assert.Equal(t, "0xuser", params.UserAddress)
			assert.Equal(t, "1000000000000000000", params.Amount.String())
			return &model.RFQRequest{ID: uuid.New(), Status: model.RequestPending}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodPost, "/requests", CreateRequestRequest{
		UserAddress: "0xuser",
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      "1000000000000000000",
		ChainID:     1,
		MaxSlippage: 0.5,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestCreateRequestHandler_BadPayload(t *testing.T) {
	app := newTestApp(&mockService{})

	// Missing required fields.
	resp := doJSON(t, app, http.MethodPost, "/requests", CreateRequestRequest{UserAddress: "0xuser"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Non-decimal amount.
	resp = doJSON(t, app, http.MethodPost, "/requests", CreateRequestRequest{
		UserAddress: "0xuser",
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      "not-a-number",
		ChainID:     1,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Malformed predicate ID.
	resp = doJSON(t, app, http.MethodPost, "/requests", CreateRequestRequest{
		UserAddress: "0xuser",
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      "100",
		ChainID:     1,
		PredicateID: "nope",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestErrorKindStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", model.ErrValidation("amount is required"), fiber.StatusBadRequest},
		{"authorization", model.ErrAuthorization("resolver not whitelisted"), fiber.StatusForbidden},
		{"not found", model.ErrNotFound("request", uuid.Nil.String()), fiber.StatusNotFound},
		{"state conflict", model.ErrConflict("quote is no longer pending"), fiber.StatusConflict},
		{"upstream", model.ErrUpstream(model.CodeOracleTimeout, "oracle did not respond in time", nil), fiber.StatusBadGateway},
		{"unknown", assert.AnError, fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				acceptQuoteFn: func(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error) {
					return nil, tc.err
				},
			}
			app := newTestApp(svc)

			resp := doJSON(t, app, http.MethodPost, "/quotes/"+uuid.NewString()+"/accept", nil)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSubmitQuoteHandler(t *testing.T) {
	requestID := uuid.New()
	svc := &mockService{
		submitQuoteFn: func(ctx context.Context, params rfq.QuoteParams) (*model.RFQQuote, error) {
			assert.Equal(t, requestID, params.RequestID)
			assert.Equal(t, "5", params.Fee.String())
			return &model.RFQQuote{ID: uuid.New(), RequestID: requestID, Status: model.QuotePending}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodPost, "/quotes", SubmitQuoteRequest{
		RequestID:       requestID.String(),
		ResolverAddress: "0xbot",
		FromAmount:      "100",
		ToAmount:        "99",
		Fee:             "5",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestSubmitQuoteHandler_BadUUID(t *testing.T) {
	app := newTestApp(&mockService{})

	resp := doJSON(t, app, http.MethodPost, "/quotes", SubmitQuoteRequest{
		RequestID:       "not-a-uuid",
		ResolverAddress: "0xbot",
		FromAmount:      "100",
		ToAmount:        "99",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetQuotesHandler(t *testing.T) {
	svc := &mockService{
		getQuotesFn: func(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error) {
			return []*model.RFQQuote{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/requests/"+uuid.NewString()+"/quotes", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestUpdateExecutionHandler(t *testing.T) {
	executionID := uuid.New()
	svc := &mockService{
		updateExecutionFn: func(ctx context.Context, id uuid.UUID, status model.ExecutionStatus, update rfq.ExecutionUpdate) (*model.RFQExecution, error) {
			assert.Equal(t, executionID, id)
			assert.Equal(t, model.ExecutionConfirmed, status)
			assert.Equal(t, "0xabc", update.TxHash)
			assert.Equal(t, "21000", update.GasUsed.String())
			return &model.RFQExecution{ID: id, Status: status}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodPut, "/executions/"+executionID.String(), UpdateExecutionRequest{
		Status:  "CONFIRMED",
		TxHash:  "0xabc",
		GasUsed: "21000",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdateExecutionHandler_BadStatus(t *testing.T) {
	app := newTestApp(&mockService{})

	resp := doJSON(t, app, http.MethodPut, "/executions/"+uuid.NewString(), UpdateExecutionRequest{
		Status: "SORT_OF_DONE",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelRequestHandler(t *testing.T) {
	requestID := uuid.New()
	svc := &mockService{
		cancelRequestFn: func(ctx context.Context, id uuid.UUID, userAddress string) (*model.RFQRequest, error) {
			assert.Equal(t, requestID, id)
			assert.Equal(t, "0xuser", userAddress)
			return &model.RFQRequest{ID: id, Status: model.RequestCancelled}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodPost, "/requests/"+requestID.String()+"/cancel",
		CancelRequestRequest{UserAddress: "0xuser"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestQueryRequestsHandler(t *testing.T) {
	svc := &mockService{
		queryRequestsFn: func(ctx context.Context, filter model.RequestFilter) ([]*model.RFQRequest, int, error) {
			assert.Equal(t, "0xuser", filter.UserAddress)
			assert.Equal(t, 2, filter.Page.Page)
			assert.Equal(t, 10, filter.Page.Limit)
			return []*model.RFQRequest{{ID: uuid.New()}}, 11, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/requests?user=0xuser&page=2&limit=10", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(11), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(10), body["limit"])
}

func TestGetStatsHandler(t *testing.T) {
	svc := &mockService{
		getStatsFn: func(ctx context.Context) (*rfq.Stats, error) {
			return &rfq.Stats{TotalRequests: 7}, nil
		},
	}
	app := newTestApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/stats", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
