package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event topics published to NATS.
const (
	TopicRequestCreated   = "evt.rfq.request.created.v1"
	TopicRequestCancelled = "evt.rfq.request.cancelled.v1"
	TopicQuoteSubmitted   = "evt.rfq.quote.submitted.v1"
	TopicQuoteAccepted    = "evt.rfq.quote.accepted.v1"
	TopicExecutionUpdated = "evt.rfq.execution.updated.v1"
	TopicOrderCreated     = "evt.orderbook.order.created.v1"
)

// Envelope is the canonical event envelope. All messages published to
// NATS follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	ChainID       int64           `json:"chain_id,omitempty"`
	UserAddress   string          `json:"user_address,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// SettlementReport is the message the settlement executor publishes once
// on-chain state is known. Consumed from RabbitMQ and merged into the
// execution record.
type SettlementReport struct {
	ExecutionID uuid.UUID       `json:"execution_id"`
	Status      ExecutionStatus `json:"status"`
	TxHash      string          `json:"tx_hash,omitempty"`
	BlockNumber int64           `json:"block_number,omitempty"`
	GasUsed     string          `json:"gas_used,omitempty"`
	Error       string          `json:"error,omitempty"`
	ReportedAt  time.Time       `json:"reported_at"`
}
