package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PredicateStatus is the lifecycle state of a price predicate.
type PredicateStatus string

const (
	PredicateActive    PredicateStatus = "ACTIVE"
	PredicateInvalid   PredicateStatus = "INVALID"
	PredicateCancelled PredicateStatus = "CANCELLED"
	PredicateExpired   PredicateStatus = "EXPIRED"
)

func (s PredicateStatus) Terminal() bool {
	return s == PredicateCancelled || s == PredicateExpired
}

// Predicate gates quote acceptance on an oracle price staying within
// tolerance of a user-chosen threshold. Tolerance and deviation are
// percentages; prices are decimals.
type Predicate struct {
	ID             uuid.UUID       `json:"predicate_id"`
	UserAddress    string          `json:"user_address"`
	OracleAddress  string          `json:"oracle_address"`
	ChainID        int64           `json:"chain_id"`
	Tolerance      float64         `json:"tolerance"`
	PriceThreshold decimal.Decimal `json:"price_threshold"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	IsValid        bool            `json:"is_valid"`
	Status         PredicateStatus `json:"status"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EffectiveStatus reports the status as of t without mutating the record.
// A stored ACTIVE/INVALID predicate past its expiry reads as EXPIRED; the
// sweeper persists that transition.
func (p *Predicate) EffectiveStatus(t time.Time) PredicateStatus {
	if !p.Status.Terminal() && !t.Before(p.ExpiresAt) {
		return PredicateExpired
	}
	return p.Status
}

func (p *Predicate) Clone() *Predicate {
	cp := *p
	return &cp
}
