package settlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-engine/internal/metrics"
	"github.com/Checker-Finance/rfq-engine/internal/rfq"
	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// Engine is the slice of the RFQ engine the consumer needs.
type Engine interface {
	UpdateExecutionStatus(ctx context.Context, executionID uuid.UUID, status model.ExecutionStatus, update rfq.ExecutionUpdate) (*model.RFQExecution, error)
}

// Consumer receives settlement reports from the out-of-band execution
// process over RabbitMQ and merges them into execution records.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	engine  Engine
	queue   string
	logger  *zap.Logger
	done    chan struct{}
}

// NewConsumer dials RabbitMQ and opens a channel.
func NewConsumer(url, queue string, engine Engine, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		engine:  engine,
		queue:   queue,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start declares the queue and begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	c.logger.Info("settlement.consumer_started", zap.String("queue", c.queue))

	go c.consume(ctx, msgs)
	return nil
}

// Close stops consuming and tears down the connection.
func (c *Consumer) Close() error {
	close(c.done)
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("settlement.channel_closed")
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var report model.SettlementReport
	if err := json.Unmarshal(msg.Body, &report); err != nil {
		c.logger.Error("settlement.unmarshal_failed", zap.Error(err))
		msg.Nack(false, false) //nolint:errcheck
		return
	}

	update := rfq.ExecutionUpdate{
		TxHash:      report.TxHash,
		BlockNumber: report.BlockNumber,
		Error:       report.Error,
	}
	if report.GasUsed != "" {
		gas, err := decimal.NewFromString(report.GasUsed)
		if err != nil {
			c.logger.Error("settlement.bad_gas_used",
				zap.String("execution_id", report.ExecutionID.String()),
				zap.String("gas_used", report.GasUsed))
			msg.Nack(false, false) //nolint:errcheck
			return
		}
		update.GasUsed = gas
	}

	_, err := c.engine.UpdateExecutionStatus(ctx, report.ExecutionID, report.Status, update)
	switch {
	case err == nil:
		metrics.SettlementReportsTotal.WithLabelValues(string(report.Status)).Inc()
		msg.Ack(false) //nolint:errcheck
	case model.IsKind(err, model.KindNotFound) || model.IsKind(err, model.KindStateConflict):
		// Unknown or already-terminal execution cannot succeed on retry.
		c.logger.Warn("settlement.report_rejected",
			zap.String("execution_id", report.ExecutionID.String()),
			zap.Error(err))
		msg.Nack(false, false) //nolint:errcheck
	default:
		c.logger.Error("settlement.update_failed",
			zap.String("execution_id", report.ExecutionID.String()),
			zap.Error(err))
		msg.Nack(false, true) //nolint:errcheck
	}
}
