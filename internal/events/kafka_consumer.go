package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingConfirmer is the slice of the booking application service the
// payment consumer needs.
type BookingConfirmer interface {
	ConfirmFromPayment(ctx context.Context, event PaymentCapturedEvent) error
}

// PaymentEventConsumer listens to payment events: a captured payment confirms
// the pending booking, and refund results are recorded for retry decisions.
type PaymentEventConsumer struct {
	consumer  *Consumer
	confirmer BookingConfirmer
	logger    *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	confirmer BookingConfirmer,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := NewConsumer(brokers, groupID, TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer:  consumer,
		confirmer: confirmer,
		logger:    logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentCaptured:
		return c.handlePaymentCaptured(ctx, cloudEvent)
	case PaymentRefundCompleted:
		return c.handleRefundResult(cloudEvent, true)
	case PaymentRefundFailed:
		return c.handleRefundResult(cloudEvent, false)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCaptured(ctx context.Context, cloudEvent CloudEvent) error {
	var evt PaymentCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentCapturedEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment captured event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
	)

	if err := c.confirmer.ConfirmFromPayment(ctx, evt); err != nil {
		c.logger.Error("failed to confirm booking after payment capture",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// handleRefundResult only records the outcome. The refund decision itself was
// made at cancellation time and is never revised here.
func (c *PaymentEventConsumer) handleRefundResult(cloudEvent CloudEvent, succeeded bool) error {
	var evt RefundResultEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse RefundResultEvent data", zap.Error(err))
		return nil
	}

	if succeeded {
		c.logger.Info("refund completed",
			zap.String("booking_id", evt.BookingID.String()),
			zap.String("amount", evt.RefundAmount.String()),
		)
		return nil
	}

	c.logger.Warn("refund failed, payment collaborator will retry",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("reason", evt.FailureReason),
	)
	return nil
}
