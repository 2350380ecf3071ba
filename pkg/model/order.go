package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an off-chain order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderActive    OrderStatus = "ACTIVE"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
	OrderFailed    OrderStatus = "FAILED"
)

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderExpired, OrderFailed:
		return true
	}
	return false
}

// Order is an off-chain limit/swap order held by the orderbook index.
// Orders are independent of the RFQ flow; AllowedSenders restricts which
// resolver may fill this specific order (empty means unrestricted).
type Order struct {
	ID                uuid.UUID       `json:"order_id"`
	UserAddress       string          `json:"user_address"`
	FromToken         string          `json:"from_token"`
	ToToken           string          `json:"to_token"`
	Amount            decimal.Decimal `json:"amount"`
	TokenDecimals     int32           `json:"token_decimals"`
	ChainID           int64           `json:"chain_id"`
	Deadline          time.Time       `json:"deadline"`
	AllowedSenders    []string        `json:"allowed_senders,omitempty"`
	MaxSlippage       float64         `json:"max_slippage"`
	Status            OrderStatus     `json:"status"`
	ExecutionAttempts int             `json:"execution_attempts"`
	ExecutorAddress   string          `json:"executor_address,omitempty"`
	TxHash            string          `json:"tx_hash,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AllowsSender reports whether the resolver may fill this order.
func (o *Order) AllowsSender(address string) bool {
	if len(o.AllowedSenders) == 0 {
		return true
	}
	for _, a := range o.AllowedSenders {
		if a == address {
			return true
		}
	}
	return false
}

func (o *Order) Clone() *Order {
	cp := *o
	if o.AllowedSenders != nil {
		cp.AllowedSenders = append([]string(nil), o.AllowedSenders...)
	}
	return &cp
}

// ResolverBot is an execution agent authorized to quote and settle.
type ResolverBot struct {
	Address         string          `json:"address"`
	Name            string          `json:"name"`
	IsWhitelisted   bool            `json:"is_whitelisted"`
	AllowedPairs    []string        `json:"allowed_pairs,omitempty"`
	MinOrderSize    decimal.Decimal `json:"min_order_size"`
	MaxOrderSize    decimal.Decimal `json:"max_order_size"`
	IsOnline        bool            `json:"is_online"`
	Reputation      float64         `json:"reputation"`
	TotalExecutions int64           `json:"total_executions"`
	SuccessRate     float64         `json:"success_rate"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SupportsPair reports whether the bot trades the pair. Empty means all pairs.
func (b *ResolverBot) SupportsPair(pair string) bool {
	if len(b.AllowedPairs) == 0 {
		return true
	}
	for _, p := range b.AllowedPairs {
		if p == pair {
			return true
		}
	}
	return false
}

func (b *ResolverBot) Clone() *ResolverBot {
	cp := *b
	if b.AllowedPairs != nil {
		cp.AllowedPairs = append([]string(nil), b.AllowedPairs...)
	}
	return &cp
}
