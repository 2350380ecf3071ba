package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state of an RFQRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestQuoted    RequestStatus = "QUOTED"
	RequestExecuted  RequestStatus = "EXECUTED"
	RequestExpired   RequestStatus = "EXPIRED"
	RequestCancelled RequestStatus = "CANCELLED"
	RequestFailed    RequestStatus = "FAILED"
)

// Terminal reports whether the request can no longer change state.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestExecuted, RequestExpired, RequestCancelled, RequestFailed:
		return true
	}
	return false
}

// QuoteStatus is the lifecycle state of an RFQQuote.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "PENDING"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteExecuted QuoteStatus = "EXECUTED"
	QuoteRejected QuoteStatus = "REJECTED"
	QuoteExpired  QuoteStatus = "EXPIRED"
	QuoteFailed   QuoteStatus = "FAILED"
)

func (s QuoteStatus) Terminal() bool {
	switch s {
	case QuoteExecuted, QuoteRejected, QuoteExpired, QuoteFailed:
		return true
	}
	return false
}

// ExecutionStatus is the lifecycle state of an RFQExecution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionConfirmed ExecutionStatus = "CONFIRMED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionConfirmed || s == ExecutionFailed || s == ExecutionCancelled
}

// RFQRequest is a user's swap intent broadcast for competing quotes.
// Amounts are decimal base units; TokenDecimals carries the scaling
// needed to compare against human-unit bounds.
type RFQRequest struct {
	ID               uuid.UUID       `json:"request_id"`
	UserAddress      string          `json:"user_address"`
	FromToken        string          `json:"from_token"`
	ToToken          string          `json:"to_token"`
	Amount           decimal.Decimal `json:"amount"`
	TokenDecimals    int32           `json:"token_decimals"`
	ChainID          int64           `json:"chain_id"`
	Deadline         time.Time       `json:"deadline"`
	Status           RequestStatus   `json:"status"`
	AllowedResolvers []string        `json:"allowed_resolvers,omitempty"`
	MaxSlippage      float64         `json:"max_slippage"`
	PredicateID      *uuid.UUID      `json:"predicate_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Pair returns the token pair in "FROM/TO" form, used for stats grouping.
func (r *RFQRequest) Pair() string {
	return r.FromToken + "/" + r.ToToken
}

// AllowsResolver reports whether the resolver may quote this request.
// An empty whitelist means unrestricted.
func (r *RFQRequest) AllowsResolver(address string) bool {
	if len(r.AllowedResolvers) == 0 {
		return true
	}
	for _, a := range r.AllowedResolvers {
		if a == address {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so store readers never share mutable state.
func (r *RFQRequest) Clone() *RFQRequest {
	cp := *r
	if r.AllowedResolvers != nil {
		cp.AllowedResolvers = append([]string(nil), r.AllowedResolvers...)
	}
	if r.PredicateID != nil {
		pid := *r.PredicateID
		cp.PredicateID = &pid
	}
	return &cp
}

// RFQQuote is a resolver's priced answer to an RFQRequest.
type RFQQuote struct {
	ID              uuid.UUID       `json:"response_id"`
	RequestID       uuid.UUID       `json:"request_id"`
	ResolverAddress string          `json:"resolver_address"`
	FromAmount      decimal.Decimal `json:"from_amount"`
	ToAmount        decimal.Decimal `json:"to_amount"`
	Fee             decimal.Decimal `json:"fee"`
	GasEstimate     decimal.Decimal `json:"gas_estimate"`
	PriceImpact     float64         `json:"price_impact,omitempty"`
	ValidUntil      time.Time       `json:"valid_until"`
	Status          QuoteStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TotalCost ranks quotes: fee plus estimated gas, lower is better.
func (q *RFQQuote) TotalCost() decimal.Decimal {
	return q.Fee.Add(q.GasEstimate)
}

// ExpiredAt reports whether the quote's validity window has elapsed at t.
func (q *RFQQuote) ExpiredAt(t time.Time) bool {
	return !t.Before(q.ValidUntil)
}

func (q *RFQQuote) Clone() *RFQQuote {
	cp := *q
	return &cp
}

// RFQExecution is the settlement record spawned by accepting a quote.
// Exactly one execution exists per accepted quote; terminal states are
// reported by the external settlement executor.
type RFQExecution struct {
	ID          uuid.UUID       `json:"execution_id"`
	RequestID   uuid.UUID       `json:"request_id"`
	QuoteID     uuid.UUID       `json:"response_id"`
	TxHash      string          `json:"tx_hash,omitempty"`
	BlockNumber int64           `json:"block_number,omitempty"`
	GasUsed     decimal.Decimal `json:"gas_used"`
	Status      ExecutionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e *RFQExecution) Clone() *RFQExecution {
	cp := *e
	return &cp
}
