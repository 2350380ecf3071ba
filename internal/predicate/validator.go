package predicate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/internal/oracle"
	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// Config bounds predicate creation.
type Config struct {
	MinTolerance float64
	MaxTolerance float64
	DefaultTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinTolerance: 0.1,
		MaxTolerance: 50.0,
		DefaultTTL:   24 * time.Hour,
	}
}

// Validator gates quote acceptance on oracle price deviation. Expiry is
// sweep-based like the rest of the engine; reads report EXPIRED past
// expiresAt without persisting, and SweepExpired persists the transition.
type Validator struct {
	cfg        Config
	predicates store.PredicateStore
	source     oracle.Source
	chains     map[int64]struct{}
	logger     *zap.Logger
}

func NewValidator(cfg Config, predicates store.PredicateStore, source oracle.Source, supportedChains []int64, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	chains := make(map[int64]struct{}, len(supportedChains))
	for _, c := range supportedChains {
		chains[c] = struct{}{}
	}
	return &Validator{
		cfg:        cfg,
		predicates: predicates,
		source:     source,
		chains:     chains,
		logger:     logger,
	}
}

// CreateParams carries the fields for registering a predicate.
type CreateParams struct {
	UserAddress    string
	OracleAddress  string
	ChainID        int64
	Tolerance      float64
	PriceThreshold decimal.Decimal
	ExpiresAt      time.Time
}

// CreatePredicate validates parameters, fetches the current oracle price
// and stores the predicate as ACTIVE.
func (v *Validator) CreatePredicate(ctx context.Context, params CreateParams) (*model.Predicate, error) {
	var fields []string
	if params.UserAddress == "" {
		fields = append(fields, "userAddress is required")
	}
	if params.OracleAddress == "" {
		fields = append(fields, "oracleAddress is required")
	}
	if params.Tolerance < v.cfg.MinTolerance || params.Tolerance > v.cfg.MaxTolerance {
		fields = append(fields, fmt.Sprintf("tolerance must be within [%.2f, %.2f]", v.cfg.MinTolerance, v.cfg.MaxTolerance))
	}
	if !params.PriceThreshold.IsPositive() {
		fields = append(fields, "priceThreshold must be positive")
	}
	if _, ok := v.chains[params.ChainID]; !ok {
		fields = append(fields, fmt.Sprintf("no oracle feeds for chain %d", params.ChainID))
	}
	if len(fields) > 0 {
		return nil, model.ErrValidation(fields...)
	}

	price, err := v.source.GetOraclePrice(ctx, params.OracleAddress, params.ChainID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := params.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(v.cfg.DefaultTTL)
	}
	if !expiresAt.After(now) {
		return nil, model.ErrValidation("expiresAt must be in the future")
	}

	p := &model.Predicate{
		ID:             uuid.New(),
		UserAddress:    params.UserAddress,
		OracleAddress:  params.OracleAddress,
		ChainID:        params.ChainID,
		Tolerance:      params.Tolerance,
		PriceThreshold: params.PriceThreshold,
		CurrentPrice:   price.Price,
		IsValid:        deviation(price.Price, params.PriceThreshold) <= params.Tolerance,
		Status:         model.PredicateActive,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := v.predicates.InsertPredicate(ctx, p); err != nil {
		return nil, err
	}

	v.logger.Info("predicate.created",
		zap.String("predicate_id", p.ID.String()),
		zap.Int64("chain", p.ChainID),
		zap.Float64("tolerance", p.Tolerance),
	)
	return p, nil
}

// Validate refetches the oracle price, recomputes the deviation and
// persists the updated currentPrice and status. Terminal predicates are
// reported invalid without an oracle round-trip. The refresh persists
// through a CAS on the loaded status: the oracle fetch is a wide window,
// and a cancel or expiry landing inside it must win over the refresh.
func (v *Validator) Validate(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := v.predicates.GetPredicate(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, model.ErrNotFound("predicate", id.String())
	}

	switch p.EffectiveStatus(time.Now().UTC()) {
	case model.PredicateActive, model.PredicateInvalid:
	default:
		return false, nil
	}
	loaded := p.Status

	price, err := v.source.GetOraclePrice(ctx, p.OracleAddress, p.ChainID)
	if err != nil {
		return false, err
	}

	dev := deviation(price.Price, p.PriceThreshold)
	p.CurrentPrice = price.Price
	p.IsValid = dev <= p.Tolerance
	if p.IsValid {
		p.Status = model.PredicateActive
	} else {
		p.Status = model.PredicateInvalid
	}
	p.UpdatedAt = time.Now().UTC()

	swapped, err := v.predicates.SwapPredicate(ctx, p, loaded)
	if err != nil {
		return false, err
	}
	if !swapped {
		// The predicate transitioned mid-fetch; whatever state it reached
		// stands, and a gate that raced a cancel or expiry stays closed.
		v.logger.Debug("predicate.refresh_superseded",
			zap.String("predicate_id", p.ID.String()))
		return false, nil
	}

	v.logger.Debug("predicate.validated",
		zap.String("predicate_id", p.ID.String()),
		zap.Float64("deviation", dev),
		zap.Bool("valid", p.IsValid),
	)
	return p.IsValid, nil
}

// CancelPredicate cancels an ACTIVE predicate; only its owner may do so.
func (v *Validator) CancelPredicate(ctx context.Context, id uuid.UUID, userAddress string) (*model.Predicate, error) {
	p, err := v.predicates.GetPredicate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound("predicate", id.String())
	}
	if p.UserAddress != userAddress {
		return nil, model.ErrAuthorization("predicate belongs to a different user")
	}
	if p.EffectiveStatus(time.Now().UTC()) != model.PredicateActive {
		return nil, model.ErrConflict("predicate is not ACTIVE")
	}

	swapped, err := v.predicates.SwapPredicateStatus(ctx, id, p.Status, model.PredicateCancelled)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, model.ErrConflict("predicate changed state concurrently")
	}

	p.Status = model.PredicateCancelled
	v.logger.Info("predicate.cancelled", zap.String("predicate_id", id.String()))
	return p, nil
}

// GetPredicateStatus returns the predicate with its effective status as
// of now. The read does not mutate; the sweeper persists expiry.
func (v *Validator) GetPredicateStatus(ctx context.Context, id uuid.UUID) (*model.Predicate, error) {
	p, err := v.predicates.GetPredicate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound("predicate", id.String())
	}
	p.Status = p.EffectiveStatus(time.Now().UTC())
	return p, nil
}

// SweepExpired persists EXPIRED for every non-terminal predicate past
// its expiresAt. Safe to run concurrently with reads and cancels.
func (v *Validator) SweepExpired(ctx context.Context) (int, error) {
	predicates, err := v.predicates.ListPredicates(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	swept := 0
	for _, p := range predicates {
		if p.Status.Terminal() || now.Before(p.ExpiresAt) {
			continue
		}
		swapped, err := v.predicates.SwapPredicateStatus(ctx, p.ID, p.Status, model.PredicateExpired)
		if err != nil {
			v.logger.Warn("predicate.sweep_failed",
				zap.String("predicate_id", p.ID.String()),
				zap.Error(err))
			continue
		}
		if swapped {
			swept++
		}
	}

	metrics.IncSwept("predicate", swept)
	if swept > 0 {
		v.logger.Info("predicate.sweep_completed", zap.Int("expired", swept))
	}
	return swept, nil
}

func deviation(current, threshold decimal.Decimal) float64 {
	if threshold.IsZero() {
		return 0
	}
	dev, _ := current.Sub(threshold).Abs().
		Div(threshold).
		Mul(decimal.NewFromInt(100)).
		Float64()
	return dev
}
