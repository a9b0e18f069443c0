package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/application"
	"github.com/droppit-app/service-booking/internal/contracts"
	"github.com/droppit-app/service-booking/internal/kafka"
)

// PaymentEventConsumer listens to payment events relayed from the Stripe
// webhook and reconciles local payment records. It never mutates booking
// status; that is driven by courier and admin actions only.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	payments *application.PaymentService
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	payments *application.PaymentService,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		payments: payments,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is
// cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case contracts.EventTypePaymentSucceeded:
		return c.handlePaymentSucceeded(ctx, cloudEvent)
	case contracts.EventTypePaymentRefunded:
		return c.handlePaymentRefunded(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentSucceeded(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.PaymentSucceededEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentSucceededEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	if err := c.payments.MarkSucceeded(ctx, evt.PaymentIntentID); err != nil {
		c.logger.Error("failed to reconcile successful payment",
			zap.String("payment_intent_id", evt.PaymentIntentID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("payment reconciled as succeeded",
		zap.String("payment_intent_id", evt.PaymentIntentID),
	)
	return nil
}

func (c *PaymentEventConsumer) handlePaymentRefunded(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.PaymentRefundedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentRefundedEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	if err := c.payments.MarkRefunded(ctx, evt.PaymentIntentID); err != nil {
		c.logger.Error("failed to reconcile refunded payment",
			zap.String("payment_intent_id", evt.PaymentIntentID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("payment reconciled as refunded",
		zap.String("payment_intent_id", evt.PaymentIntentID),
	)
	return nil
}
