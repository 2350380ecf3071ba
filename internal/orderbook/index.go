package orderbook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
	"github.com/Checker-Finance/rfq-engine/pkg/utils"
)

// Config bounds order creation. Amount bounds are in human token units;
// incoming amounts are base units and get normalized by token decimals
// before comparison.
type Config struct {
	MinOrderAmount    decimal.Decimal
	MaxOrderAmount    decimal.Decimal
	MaxAllowedSenders int
	MinSlippage       float64
	MaxSlippage       float64
}

func DefaultConfig() Config {
	return Config{
		MinOrderAmount:    decimal.NewFromInt(1),
		MaxOrderAmount:    decimal.NewFromInt(1_000_000),
		MaxAllowedSenders: 10,
		MinSlippage:       0.01,
		MaxSlippage:       50.0,
	}
}

// Index stores off-chain orders and answers fillability queries for
// resolvers. Orders are independent of the RFQ flow.
type Index struct {
	cfg      Config
	orders   store.OrderStore
	registry *registry.Registry
	logger   *zap.Logger
}

func NewIndex(cfg Config, orders store.OrderStore, reg *registry.Registry, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{cfg: cfg, orders: orders, registry: reg, logger: logger}
}

// AddParams carries the fields for placing an order.
type AddParams struct {
	UserAddress    string
	FromToken      string
	ToToken        string
	Amount         decimal.Decimal
	TokenDecimals  int32
	ChainID        int64
	Deadline       time.Time
	AllowedSenders []string
	MaxSlippage    float64
}

// AddOrder validates and stores a new order in PENDING.
func (i *Index) AddOrder(ctx context.Context, params AddParams) (*model.Order, error) {
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
	if params.ChainID <= 0 {
		fields = append(fields, "chainId is required")
	}
	if len(params.AllowedSenders) > i.cfg.MaxAllowedSenders {
		fields = append(fields, fmt.Sprintf("allowedSenders must not exceed %d entries", i.cfg.MaxAllowedSenders))
	}
	if params.MaxSlippage < i.cfg.MinSlippage || params.MaxSlippage > i.cfg.MaxSlippage {
		fields = append(fields, fmt.Sprintf("maxSlippage must be within [%.2f, %.2f]", i.cfg.MinSlippage, i.cfg.MaxSlippage))
	}

	human := utils.ToHumanUnits(params.Amount, params.TokenDecimals)
	if human.LessThan(i.cfg.MinOrderAmount) {
		fields = append(fields, "Amount too small")
	} else if human.GreaterThan(i.cfg.MaxOrderAmount) {
		fields = append(fields, "Amount too large")
	}

	now := time.Now().UTC()
	if !params.Deadline.After(now) {
		fields = append(fields, "deadline must be in the future")
	}
	if len(fields) > 0 {
		return nil, model.ErrValidation(fields...)
	}

	order := &model.Order{
		ID:             uuid.New(),
		UserAddress:    params.UserAddress,
		FromToken:      params.FromToken,
		ToToken:        params.ToToken,
		Amount:         params.Amount,
		TokenDecimals:  params.TokenDecimals,
		ChainID:        params.ChainID,
		Deadline:       params.Deadline,
		AllowedSenders: params.AllowedSenders,
		MaxSlippage:    params.MaxSlippage,
		Status:         model.OrderPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := i.orders.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	i.logger.Info("orderbook.order_added",
		zap.String("order_id", order.ID.String()),
		zap.String("user", utils.ShortAddress(order.UserAddress)),
		zap.String("pair", order.FromToken+"/"+order.ToToken),
	)
	return order, nil
}

// StatusUpdate carries execution metadata for UpdateOrderStatus.
type StatusUpdate struct {
	Status          model.OrderStatus
	ExecutorAddress string
	TxHash          string
}

// UpdateOrderStatus applies a status transition, incrementing the
// execution attempt counter and stamping executor/tx metadata when given.
func (i *Index) UpdateOrderStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*model.Order, error) {
	order, err := i.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrNotFound("order", id.String())
	}
	if order.Status.Terminal() {
		return nil, model.ErrConflict(fmt.Sprintf("order %s is already %s", id, order.Status))
	}

	order.Status = update.Status
	order.ExecutionAttempts++
	if update.ExecutorAddress != "" {
		order.ExecutorAddress = update.ExecutorAddress
	}
	if update.TxHash != "" {
		order.TxHash = update.TxHash
	}
	order.UpdatedAt = time.Now().UTC()

	if err := i.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	i.logger.Info("orderbook.order_status_updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(update.Status)),
		zap.Int("attempts", order.ExecutionAttempts),
	)
	return order, nil
}

// QueryOrders filters, sorts and paginates the order set. Read-only.
func (i *Index) QueryOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, int, error) {
	orders, err := i.orders.ListOrders(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		if filter.UserAddress != "" && o.UserAddress != filter.UserAddress {
			continue
		}
		if filter.FromToken != "" && o.FromToken != filter.FromToken {
			continue
		}
		if filter.ToToken != "" && o.ToToken != filter.ToToken {
			continue
		}
		if filter.ChainID != 0 && o.ChainID != filter.ChainID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && o.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, o)
	}

	sortOrders(matched, filter.Sort)

	total := len(matched)
	page := filter.Page.Normalize()
	start := page.Offset()
	if start >= total {
		return []*model.Order{}, total, nil
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// GetFillableOrders returns ACTIVE orders the bot may fill: the bot is
// in allowedSenders (or the order is unrestricted) and the bot is
// whitelisted and online.
func (i *Index) GetFillableOrders(ctx context.Context, botAddress string) ([]*model.Order, error) {
	ok, err := i.registry.Validate(ctx, botAddress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*model.Order{}, nil
	}

	orders, err := i.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fillable := make([]*model.Order, 0)
	for _, o := range orders {
		if o.Status != model.OrderActive {
			continue
		}
		if !o.Deadline.After(now) {
			continue
		}
		if !o.AllowsSender(botAddress) {
			continue
		}
		fillable = append(fillable, o)
	}
	return fillable, nil
}

// ValidateResolver reports whether the address is whitelisted and online.
func (i *Index) ValidateResolver(ctx context.Context, address string) (bool, error) {
	return i.registry.Validate(ctx, address)
}

// CleanupExpiredOrders sweeps ACTIVE/PENDING orders past their deadline
// to EXPIRED. Idempotent; CAS keeps it from clobbering concurrent fills.
func (i *Index) CleanupExpiredOrders(ctx context.Context) (int, error) {
	orders, err := i.orders.ListOrders(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	swept := 0
	for _, o := range orders {
		if o.Status != model.OrderActive && o.Status != model.OrderPending {
			continue
		}
		if o.Deadline.After(now) {
			continue
		}
		swapped, err := i.orders.SwapOrderStatus(ctx, o.ID, o.Status, model.OrderExpired)
		if err != nil {
			i.logger.Warn("orderbook.sweep_failed",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		if swapped {
			swept++
		}
	}

	metrics.IncSwept("order", swept)
	if swept > 0 {
		i.logger.Info("orderbook.sweep_completed", zap.Int("expired", swept))
	}
	return swept, nil
}

func sortOrders(orders []*model.Order, s model.Sort) {
	desc := s.Direction != model.SortAsc
	switch s.Field {
	case model.SortByAmount:
		sort.SliceStable(orders, func(a, b int) bool {
			if desc {
				return orders[a].Amount.GreaterThan(orders[b].Amount)
			}
			return orders[a].Amount.LessThan(orders[b].Amount)
		})
	case model.SortByPrice:
		// Accepted but a no-op for now; see model.SortByPrice.
	default:
		sort.SliceStable(orders, func(a, b int) bool {
			if desc {
				return orders[a].CreatedAt.After(orders[b].CreatedAt)
			}
			return orders[a].CreatedAt.Before(orders[b].CreatedAt)
		})
	}
}
