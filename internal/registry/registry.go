package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
	"github.com/Checker-Finance/rfq-engine/pkg/utils"
)

// Registry is the whitelist of execution agents, consulted by the RFQ
// engine (quote authorization) and the orderbook index (fillability).
//
// mu serializes the read-modify-write updates (status toggles, outcome
// recording) so concurrent settlement reports never lose an update.
type Registry struct {
	resolvers store.ResolverStore
	logger    *zap.Logger

	mu sync.Mutex
}

func New(resolvers store.ResolverStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{resolvers: resolvers, logger: logger}
}

// AddParams carries the fields for registering a resolver bot.
type AddParams struct {
	Address      string
	Name         string
	AllowedPairs []string
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
}

// AddResolverBot registers a new bot, whitelisted and online by default.
func (r *Registry) AddResolverBot(ctx context.Context, params AddParams) (*model.ResolverBot, error) {
	var fields []string
	if strings.TrimSpace(params.Address) == "" {
		fields = append(fields, "address is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		fields = append(fields, "name is required")
	}
	if params.MaxOrderSize.IsPositive() && params.MinOrderSize.GreaterThan(params.MaxOrderSize) {
		fields = append(fields, "minOrderSize must not exceed maxOrderSize")
	}
	if len(fields) > 0 {
		return nil, model.ErrValidation(fields...)
	}

	now := time.Now().UTC()
	bot := &model.ResolverBot{
		Address:       params.Address,
		Name:          params.Name,
		IsWhitelisted: true,
		AllowedPairs:  params.AllowedPairs,
		MinOrderSize:  params.MinOrderSize,
		MaxOrderSize:  params.MaxOrderSize,
		IsOnline:      true,
		Reputation:    1.0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.resolvers.InsertResolver(ctx, bot); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, model.ErrConflict("resolver already registered: " + params.Address)
		}
		return nil, err
	}

	r.logger.Info("registry.resolver_added",
		zap.String("address", utils.ShortAddress(bot.Address)),
		zap.String("name", bot.Name),
	)
	return bot, nil
}

// GetResolverBot returns a bot by address.
func (r *Registry) GetResolverBot(ctx context.Context, address string) (*model.ResolverBot, error) {
	bot, err := r.resolvers.GetResolver(ctx, address)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, model.ErrNotFound("resolver", address)
	}
	return bot, nil
}

// ListResolverBots returns all registered bots.
func (r *Registry) ListResolverBots(ctx context.Context) ([]*model.ResolverBot, error) {
	bots, err := r.resolvers.ListResolvers(ctx)
	if err != nil {
		return nil, err
	}
	if bots == nil {
		bots = []*model.ResolverBot{}
	}
	return bots, nil
}

// UpdateResolverBotStatus toggles the online flag.
func (r *Registry) UpdateResolverBotStatus(ctx context.Context, address string, online bool) (*model.ResolverBot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bot, err := r.GetResolverBot(ctx, address)
	if err != nil {
		return nil, err
	}
	bot.IsOnline = online
	bot.UpdatedAt = time.Now().UTC()
	if err := r.resolvers.UpdateResolver(ctx, bot); err != nil {
		return nil, err
	}

	r.logger.Info("registry.resolver_status_updated",
		zap.String("address", utils.ShortAddress(address)),
		zap.Bool("online", online),
	)
	return bot, nil
}

// SetWhitelisted flips the whitelist flag for a bot.
func (r *Registry) SetWhitelisted(ctx context.Context, address string, whitelisted bool) (*model.ResolverBot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bot, err := r.GetResolverBot(ctx, address)
	if err != nil {
		return nil, err
	}
	bot.IsWhitelisted = whitelisted
	bot.UpdatedAt = time.Now().UTC()
	if err := r.resolvers.UpdateResolver(ctx, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// RemoveResolverBot deletes a bot from the registry.
func (r *Registry) RemoveResolverBot(ctx context.Context, address string) error {
	if _, err := r.GetResolverBot(ctx, address); err != nil {
		return err
	}
	return r.resolvers.DeleteResolver(ctx, address)
}

// Validate reports whether the address belongs to a bot that is both
// whitelisted and online.
func (r *Registry) Validate(ctx context.Context, address string) (bool, error) {
	bot, err := r.resolvers.GetResolver(ctx, address)
	if err != nil {
		return false, err
	}
	if bot == nil {
		return false, nil
	}
	return bot.IsWhitelisted && bot.IsOnline, nil
}

// RecordExecution folds a settlement outcome into the bot's performance
// metrics. Reputation decays toward the observed success rate.
func (r *Registry) RecordExecution(ctx context.Context, address string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bot, err := r.resolvers.GetResolver(ctx, address)
	if err != nil || bot == nil {
		return err
	}

	succeeded := bot.SuccessRate * float64(bot.TotalExecutions)
	if success {
		succeeded++
	}
	bot.TotalExecutions++
	bot.SuccessRate = succeeded / float64(bot.TotalExecutions)
	bot.Reputation = 0.9*bot.Reputation + 0.1*bot.SuccessRate
	bot.UpdatedAt = time.Now().UTC()

	return r.resolvers.UpdateResolver(ctx, bot)
}

// PoolStats summarizes the resolver pool for engine statistics.
type PoolStats struct {
	Total         int     `json:"total"`
	Online        int     `json:"online"`
	AvgReputation float64 `json:"avg_reputation"`
}

// Stats aggregates pool size and average reputation.
func (r *Registry) Stats(ctx context.Context) (PoolStats, error) {
	bots, err := r.resolvers.ListResolvers(ctx)
	if err != nil {
		return PoolStats{}, err
	}

	stats := PoolStats{Total: len(bots)}
	var repSum float64
	for _, b := range bots {
		if b.IsOnline {
			stats.Online++
		}
		repSum += b.Reputation
	}
	if len(bots) > 0 {
		stats.AvgReputation = repSum / float64(len(bots))
	}
	return stats, nil
}
