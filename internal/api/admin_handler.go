package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/predicate"
	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// RegistryService defines the resolver registry operations needed here.
type RegistryService interface {
	AddResolverBot(ctx context.Context, params registry.AddParams) (*model.ResolverBot, error)
	GetResolverBot(ctx context.Context, address string) (*model.ResolverBot, error)
	ListResolverBots(ctx context.Context) ([]*model.ResolverBot, error)
	UpdateResolverBotStatus(ctx context.Context, address string, online bool) (*model.ResolverBot, error)
	RemoveResolverBot(ctx context.Context, address string) error
}

// PredicateService defines the predicate operations needed here.
type PredicateService interface {
	CreatePredicate(ctx context.Context, params predicate.CreateParams) (*model.Predicate, error)
	GetPredicateStatus(ctx context.Context, id uuid.UUID) (*model.Predicate, error)
	CancelPredicate(ctx context.Context, id uuid.UUID, userAddress string) (*model.Predicate, error)
}

// AdminHandler handles resolver and predicate management endpoints.
type AdminHandler struct {
	logger     *zap.Logger
	registry   RegistryService
	predicates PredicateService
}

func NewAdminHandler(logger *zap.Logger, reg RegistryService, predicates PredicateService) *AdminHandler {
	return &AdminHandler{logger: logger, registry: reg, predicates: predicates}
}

// AddResolverHandler registers an execution agent.
func (h *AdminHandler) AddResolverHandler(c *fiber.Ctx) error {
	var req AddResolverRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	params := registry.AddParams{
		Address:      req.Address,
		Name:         req.Name,
		AllowedPairs: req.AllowedPairs,
	}
	var err error
	if req.MinOrderSize != "" {
		if params.MinOrderSize, err = decimal.NewFromString(req.MinOrderSize); err != nil {
			return badRequest(c, "minOrderSize must be a decimal string")
		}
	}
	if req.MaxOrderSize != "" {
		if params.MaxOrderSize, err = decimal.NewFromString(req.MaxOrderSize); err != nil {
			return badRequest(c, "maxOrderSize must be a decimal string")
		}
	}

	bot, err := h.registry.AddResolverBot(c.Context(), params)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, bot)
}

// GetResolverHandler returns one resolver bot.
func (h *AdminHandler) GetResolverHandler(c *fiber.Ctx) error {
	bot, err := h.registry.GetResolverBot(c.Context(), c.Params("address"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, bot)
}

// ListResolversHandler returns every registered bot.
func (h *AdminHandler) ListResolversHandler(c *fiber.Ctx) error {
	bots, err := h.registry.ListResolverBots(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, bots)
}

// UpdateResolverStatusHandler toggles a bot online/offline.
func (h *AdminHandler) UpdateResolverStatusHandler(c *fiber.Ctx) error {
	var req UpdateResolverStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}

	bot, err := h.registry.UpdateResolverBotStatus(c.Context(), c.Params("address"), req.IsOnline)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, bot)
}

// RemoveResolverHandler deletes a bot.
func (h *AdminHandler) RemoveResolverHandler(c *fiber.Ctx) error {
	if err := h.registry.RemoveResolverBot(c.Context(), c.Params("address")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreatePredicateHandler registers a price predicate.
func (h *AdminHandler) CreatePredicateHandler(c *fiber.Ctx) error {
	var req CreatePredicateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	threshold, err := decimal.NewFromString(req.PriceThreshold)
	if err != nil {
		return badRequest(c, "priceThreshold must be a decimal string")
	}

	params := predicate.CreateParams{
		UserAddress:    req.UserAddress,
		OracleAddress:  req.OracleAddress,
		ChainID:        req.ChainID,
		Tolerance:      req.Tolerance,
		PriceThreshold: threshold,
	}
	if req.ExpiresAt > 0 {
		params.ExpiresAt = time.Unix(req.ExpiresAt, 0).UTC()
	}

	p, err := h.predicates.CreatePredicate(c.Context(), params)
	if err != nil {
		h.logger.Warn("api.create_predicate_failed",
			zap.String("user", req.UserAddress),
			zap.Error(err))
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, p)
}

// GetPredicateHandler returns a predicate with its effective status.
func (h *AdminHandler) GetPredicateHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("predicateId"))
	if err != nil {
		return badRequest(c, "predicateId must be a UUID")
	}

	p, err := h.predicates.GetPredicateStatus(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, p)
}

// CancelPredicateHandler cancels an ACTIVE predicate.
func (h *AdminHandler) CancelPredicateHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("predicateId"))
	if err != nil {
		return badRequest(c, "predicateId must be a UUID")
	}

	var req CancelPredicateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.UserAddress == "" {
		return badRequest(c, "userAddress is required")
	}

	p, err := h.predicates.CancelPredicate(c.Context(), id, req.UserAddress)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, p)
}
