// Package history carries status transitions from the request service to the audit trail.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"internship/internal/model"
	"internship/internal/queue"
	"internship/internal/store"
)

// EventTransitioned is the message type of a committed status change.
const EventTransitioned = "request.transitioned"

// Publish enqueues a transition event.
func Publish(ctx context.Context, q queue.Queue, e model.HistoryEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventTransitioned, err)
	}
	return q.Publish(ctx, queue.Message{Type: EventTransitioned, Body: body})
}

// Consumer appends transition events to a HistoryStore.
type Consumer struct {
	queue  queue.Queue
	store  store.HistoryStore
	logger zerolog.Logger
}

// NewConsumer wires a consumer.
func NewConsumer(q queue.Queue, s store.HistoryStore, logger zerolog.Logger) *Consumer {
	return &Consumer{queue: q, store: s, logger: logger.With().Str("component", "history").Logger()}
}

// Run processes events until ctx is done. Individual event failures are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info().Msg("history consumer started")
	for msg := range messages {
		c.Handle(ctx, msg)
	}
	c.logger.Info().Msg("history consumer stopped")
	return nil
}

// Handle processes a single message.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != EventTransitioned {
		c.logger.Debug().Str("type", msg.Type).Msg("ignoring message")
		return
	}
	var e model.HistoryEntry
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		c.logger.Warn().Err(err).Msg("undecodable transition event")
		return
	}
	if e.ID == "" || e.RequestID == "" {
		c.logger.Warn().Str("event_id", e.ID).Msg("transition event without ids")
		return
	}
	if err := c.store.AppendHistory(ctx, e); err != nil {
		c.logger.Error().Err(err).Str("event_id", e.ID).Str("request_id", e.RequestID).Msg("append history")
		return
	}
	c.logger.Debug().Str("event_id", e.ID).Str("request_id", e.RequestID).Str("to", string(e.To)).Msg("history appended")
}
