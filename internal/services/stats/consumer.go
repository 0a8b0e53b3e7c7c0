package stats

import (
	"context"
	"fmt"

	"github.com/dearfuture/letterbox/internal/queue"
	"go.uber.org/zap"
)

// EventRequeuer re-publishes events whose processing failed so they come
// back around with a bumped retry count. Satisfied by queue.EventQueue.
type EventRequeuer interface {
	Publish(ctx context.Context, event *queue.StatEvent) error
}

// Consumer drives the aggregator from queue messages and owns the
// acknowledgement protocol: applied events are acked, failed events are
// re-published with an incremented retry count until retries run out, then
// dead-lettered for inspection.
type Consumer struct {
	aggregator *Aggregator
	events     EventRequeuer
	logger     *zap.Logger
}

// NewConsumer creates a consumer. events may be nil, in which case failed
// events go straight to the dead letter queue.
func NewConsumer(aggregator *Aggregator, events EventRequeuer, logger *zap.Logger) *Consumer {
	return &Consumer{
		aggregator: aggregator,
		events:     events,
		logger:     logger,
	}
}

// ProcessMessage applies one stat event and settles its delivery
func (c *Consumer) ProcessMessage(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()

	err := c.aggregator.Apply(ctx, event)
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack stat event: %w", ackErr)
		}
		return nil
	}

	if event.CanRetry() && c.events != nil {
		event.IncrementRetry()

		if pubErr := c.events.Publish(ctx, event); pubErr != nil {
			c.logger.Error("failed_to_requeue_stat_event",
				zap.Error(pubErr),
				zap.String("event_id", event.ID.String()),
			)
			// Could not re-publish the bumped copy; requeue the original so
			// the event is not lost
			if nackErr := msg.Nack(true); nackErr != nil {
				c.logger.Error("failed_to_nack_message", zap.Error(nackErr))
			}
			return fmt.Errorf("stat event requeue failed: %w", pubErr)
		}

		c.logger.Warn("stat_event_retry_scheduled",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Int("retry_count", event.RetryCount),
			zap.Int("max_retries", event.MaxRetries),
		)
		// The bumped copy is on the queue; settle the original
		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Error("failed_to_ack_message", zap.Error(ackErr))
		}
		return fmt.Errorf("stat event failed (will retry): %w", err)
	}

	c.logger.Error("stat_event_dead_lettered",
		zap.Error(err),
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.Type)),
		zap.Int("retry_count", event.RetryCount),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		c.logger.Error("failed_to_nack_message", zap.Error(nackErr))
	}
	return fmt.Errorf("stat event failed (retries exhausted): %w", err)
}
