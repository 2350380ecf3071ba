package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/orderbook"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// OrderbookService defines the orderbook operations needed by the handler.
type OrderbookService interface {
	AddOrder(ctx context.Context, params orderbook.AddParams) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, update orderbook.StatusUpdate) (*model.Order, error)
	QueryOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error)
	GetFillableOrders(ctx context.Context, botAddress string) ([]*model.Order, error)
}

// OrderbookHandler handles HTTP API requests for the order index.
type OrderbookHandler struct {
	logger  *zap.Logger
	service OrderbookService
}

func NewOrderbookHandler(logger *zap.Logger, service OrderbookService) *OrderbookHandler {
	return &OrderbookHandler{logger: logger, service: service}
}

// AddOrderHandler places an off-chain order.
func (h *OrderbookHandler) AddOrderHandler(c *fiber.Ctx) error {
	var req AddOrderRequest
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

	order, err := h.service.AddOrder(c.Context(), orderbook.AddParams{
		UserAddress:    req.UserAddress,
		FromToken:      req.FromToken,
		ToToken:        req.ToToken,
		Amount:         amount,
		TokenDecimals:  req.TokenDecimals,
		ChainID:        req.ChainID,
		Deadline:       time.Unix(req.Deadline, 0).UTC(),
		AllowedSenders: req.AllowedSenders,
		MaxSlippage:    req.MaxSlippage,
	})
	if err != nil {
		h.logger.Warn("api.add_order_failed",
			zap.String("user", req.UserAddress),
			zap.Error(err))
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, order)
}

// UpdateOrderStatusHandler applies an order transition.
func (h *OrderbookHandler) UpdateOrderStatusHandler(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return badRequest(c, "orderId must be a UUID")
	}

	var req UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	order, err := h.service.UpdateOrderStatus(c.Context(), orderID, orderbook.StatusUpdate{
		Status:          model.OrderStatus(req.Status),
		ExecutorAddress: req.ExecutorAddress,
		TxHash:          req.TxHash,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, order)
}

// QueryOrdersHandler filters and paginates the order set.
func (h *OrderbookHandler) QueryOrdersHandler(c *fiber.Ctx) error {
	filter := model.OrderFilter{
		UserAddress: c.Query("user"),
		FromToken:   c.Query("fromToken"),
		ToToken:     c.Query("toToken"),
		ChainID:     int64(c.QueryInt("chainId")),
		Status:      model.OrderStatus(c.Query("status")),
		Sort: model.Sort{
			Field:     model.SortField(c.Query("sortBy")),
			Direction: model.SortDirection(c.Query("sortDir")),
		},
		Page: model.Page{
			Page:  c.QueryInt("page", 1),
			Limit: c.QueryInt("limit", model.DefaultPageLimit),
		},
	}

	orders, total, err := h.service.QueryOrders(c.Context(), filter)
	if err != nil {
		return fail(c, err)
	}

	page := filter.Page.Normalize()
	return c.Status(fiber.StatusOK).JSON(PageResponse{
		Success: true,
		Data:    orders,
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
	})
}

// GetFillableOrdersHandler lists orders a resolver may fill.
func (h *OrderbookHandler) GetFillableOrdersHandler(c *fiber.Ctx) error {
	botAddress := c.Params("address")
	if botAddress == "" {
		return badRequest(c, "address is required")
	}

	orders, err := h.service.GetFillableOrders(c.Context(), botAddress)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, orders)
}
