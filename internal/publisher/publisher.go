package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/pkg/logger"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// Publisher wraps a NATS connection and publishes canonical lifecycle
// events. It satisfies the engine's Events interface: publish failures
// are logged and counted, never surfaced to the calling operation.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	service string
}

// New creates a Publisher with JetStream enabled.
func New(nc *nats.Conn, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, js: js, service: service}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.NATSPublishErrors.WithLabelValues(subject).Inc()
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)
	return nil
}

func (p *Publisher) emit(ctx context.Context, topic, eventType string, correlationID uuid.UUID, chainID int64, userAddress string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", topic,
			"event_type", eventType,
			"error", err,
		)
		return
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		ChainID:       chainID,
		UserAddress:   userAddress,
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}
	_ = p.PublishEnvelope(ctx, topic, env) //nolint:errcheck
}

// RequestCreated emits evt.rfq.request.created.v1.
func (p *Publisher) RequestCreated(ctx context.Context, req *model.RFQRequest) {
	p.emit(ctx, model.TopicRequestCreated, "rfq.request.created", req.ID, req.ChainID, req.UserAddress, req)
}

// RequestCancelled emits evt.rfq.request.cancelled.v1.
func (p *Publisher) RequestCancelled(ctx context.Context, req *model.RFQRequest) {
	p.emit(ctx, model.TopicRequestCancelled, "rfq.request.cancelled", req.ID, req.ChainID, req.UserAddress, req)
}

// QuoteSubmitted emits evt.rfq.quote.submitted.v1, correlated to the
// parent request.
func (p *Publisher) QuoteSubmitted(ctx context.Context, q *model.RFQQuote, req *model.RFQRequest) {
	p.emit(ctx, model.TopicQuoteSubmitted, "rfq.quote.submitted", req.ID, req.ChainID, req.UserAddress, q)
}

// QuoteAccepted emits evt.rfq.quote.accepted.v1 with the spawned
// execution as payload.
func (p *Publisher) QuoteAccepted(ctx context.Context, q *model.RFQQuote, exec *model.RFQExecution) {
	p.emit(ctx, model.TopicQuoteAccepted, "rfq.quote.accepted", q.RequestID, 0, "", exec)
}

// ExecutionUpdated emits evt.rfq.execution.updated.v1.
func (p *Publisher) ExecutionUpdated(ctx context.Context, exec *model.RFQExecution) {
	p.emit(ctx, model.TopicExecutionUpdated, "rfq.execution.updated", exec.RequestID, 0, "", exec)
}

// OrderCreated emits evt.orderbook.order.created.v1.
func (p *Publisher) OrderCreated(ctx context.Context, order *model.Order) {
	p.emit(ctx, model.TopicOrderCreated, "orderbook.order.created", order.ID, order.ChainID, order.UserAddress, order)
}
