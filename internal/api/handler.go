package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/rfq"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// RFQService defines the engine operations needed by the handler.
type RFQService interface {
	CreateRequest(ctx context.Context, params rfq.CreateParams) (*model.RFQRequest, error)
	SubmitQuote(ctx context.Context, params rfq.QuoteParams) (*model.RFQQuote, error)
	GetQuotes(ctx context.Context, requestID uuid.UUID) ([]*model.RFQQuote, error)
	AcceptQuote(ctx context.Context, quoteID uuid.UUID) (*model.RFQExecution, error)
	UpdateExecutionStatus(ctx context.Context, executionID uuid.UUID, status model.ExecutionStatus, update rfq.ExecutionUpdate) (*model.RFQExecution, error)
	CancelRequest(ctx context.Context, requestID uuid.UUID, userAddress string) (*model.RFQRequest, error)
	QueryRequests(ctx context.Context, filter model.RequestFilter) ([]*model.RFQRequest, int, error)
	GetStats(ctx context.Context) (*rfq.Stats, error)
}

// RFQHandler handles HTTP API requests for RFQ operations.
type RFQHandler struct {
	logger  *zap.Logger
	service RFQService
}

func NewRFQHandler(logger *zap.Logger, service RFQService) *RFQHandler {
	return &RFQHandler{logger: logger, service: service}
}

// CreateRequestHandler opens a new RFQ request.
func (h *RFQHandler) CreateRequestHandler(c *fiber.Ctx) error {
	var req CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "amount must be a decimal string")
	}

	params := rfq.CreateParams{
		UserAddress:      req.UserAddress,
		FromToken:        req.FromToken,
		ToToken:          req.ToToken,
		Amount:           amount,
		TokenDecimals:    req.TokenDecimals,
		ChainID:          req.ChainID,
		AllowedResolvers: req.AllowedResolvers,
		MaxSlippage:      req.MaxSlippage,
	}
	if req.PredicateID != "" {
		pid, err := uuid.Parse(req.PredicateID)
		if err != nil {
			return badRequest(c, "predicateId must be a UUID")
		}
		params.PredicateID = &pid
	}

	created, err := h.service.CreateRequest(c.Context(), params)
	if err != nil {
		h.logger.Warn("api.create_request_failed",
			zap.String("user", req.UserAddress),
			zap.Error(err))
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, created)
}

// SubmitQuoteHandler appends a resolver quote to a request.
func (h *RFQHandler) SubmitQuoteHandler(c *fiber.Ctx) error {
	var req SubmitQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return badRequest(c, "requestId must be a UUID")
	}

	params := rfq.QuoteParams{
		RequestID:       requestID,
		ResolverAddress: req.ResolverAddress,
		PriceImpact:     req.PriceImpact,
	}
	if params.FromAmount, err = decimal.NewFromString(req.FromAmount); err != nil {
		return badRequest(c, "fromAmount must be a decimal string")
	}
	if params.ToAmount, err = decimal.NewFromString(req.ToAmount); err != nil {
		return badRequest(c, "toAmount must be a decimal string")
	}
	if req.Fee != "" {
		if params.Fee, err = decimal.NewFromString(req.Fee); err != nil {
			return badRequest(c, "fee must be a decimal string")
		}
	}
	if req.GasEstimate != "" {
		if params.GasEstimate, err = decimal.NewFromString(req.GasEstimate); err != nil {
			return badRequest(c, "gasEstimate must be a decimal string")
		}
	}

	quote, err := h.service.SubmitQuote(c.Context(), params)
	if err != nil {
		h.logger.Warn("api.submit_quote_failed",
			zap.String("request_id", req.RequestID),
			zap.String("resolver", req.ResolverAddress),
			zap.Error(err))
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, quote)
}

// GetQuotesHandler lists live quotes for a request, best first.
func (h *RFQHandler) GetQuotesHandler(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return badRequest(c, "requestId must be a UUID")
	}

	quotes, err := h.service.GetQuotes(c.Context(), requestID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, quotes)
}

// AcceptQuoteHandler selects the winning quote and spawns an execution.
func (h *RFQHandler) AcceptQuoteHandler(c *fiber.Ctx) error {
	quoteID, err := uuid.Parse(c.Params("responseId"))
	if err != nil {
		return badRequest(c, "responseId must be a UUID")
	}

	exec, err := h.service.AcceptQuote(c.Context(), quoteID)
	if err != nil {
		h.logger.Warn("api.accept_quote_failed",
			zap.String("response_id", quoteID.String()),
			zap.Error(err))
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, exec)
}

// UpdateExecutionHandler is the settlement executor's callback.
func (h *RFQHandler) UpdateExecutionHandler(c *fiber.Ctx) error {
	executionID, err := uuid.Parse(c.Params("executionId"))
	if err != nil {
		return badRequest(c, "executionId must be a UUID")
	}

	var req UpdateExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	update := rfq.ExecutionUpdate{
		TxHash:      req.TxHash,
		BlockNumber: req.BlockNumber,
		Error:       req.Error,
	}
	if req.GasUsed != "" {
		if update.GasUsed, err = decimal.NewFromString(req.GasUsed); err != nil {
			return badRequest(c, "gasUsed must be a decimal string")
		}
	}

	exec, err := h.service.UpdateExecutionStatus(c.Context(), executionID, model.ExecutionStatus(req.Status), update)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, exec)
}

// CancelRequestHandler cancels an open request on behalf of its owner.
func (h *RFQHandler) CancelRequestHandler(c *fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return badRequest(c, "requestId must be a UUID")
	}

	var req CancelRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.UserAddress == "" {
		return badRequest(c, "userAddress is required")
	}

	cancelled, err := h.service.CancelRequest(c.Context(), requestID, req.UserAddress)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, cancelled)
}

// QueryRequestsHandler filters and paginates the request set.
func (h *RFQHandler) QueryRequestsHandler(c *fiber.Ctx) error {
	filter := model.RequestFilter{
		UserAddress: c.Query("user"),
		FromToken:   c.Query("fromToken"),
		ToToken:     c.Query("toToken"),
		ChainID:     int64(c.QueryInt("chainId")),
		Status:      model.RequestStatus(c.Query("status")),
		Sort: model.Sort{
			Field:     model.SortField(c.Query("sortBy")),
			Direction: model.SortDirection(c.Query("sortDir")),
		},
		Page: model.Page{
			Page:  c.QueryInt("page", 1),
			Limit: c.QueryInt("limit", model.DefaultPageLimit),
		},
	}

	requests, total, err := h.service.QueryRequests(c.Context(), filter)
	if err != nil {
		return fail(c, err)
	}

	page := filter.Page.Normalize()
	return c.Status(fiber.StatusOK).JSON(PageResponse{
		Success: true,
		Data:    requests,
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
	})
}

// GetStatsHandler returns the aggregate engine snapshot.
func (h *RFQHandler) GetStatsHandler(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, stats)
}
