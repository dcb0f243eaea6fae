// Package events publishes record lifecycle events to Redis Streams.
// Publishing is best-effort; a failed publish never fails the mutation
// that produced it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/models"
)

// StreamName is the Redis stream record events are appended to.
const StreamName = "gomonitor:record-events"

// EventType identifies what happened to a record.
type EventType string

const (
	EventRecordRegistered EventType = "record.registered"
	EventStockChanged     EventType = "record.stock_changed"
	EventPriceChanged     EventType = "record.price_changed"
	EventRecordRemoved    EventType = "record.removed"
)

// RecordEvent is the payload appended to the stream.
type RecordEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	RecordID   int64           `json:"record_id"`
	ExternalID int64           `json:"external_id"`
	Platform   models.Platform `json:"platform"`
	Payload    map[string]any  `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Publisher publishes record events to Redis Streams.
// A nil Publisher is valid and publishes nothing.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates a publisher. Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client, log: log}
}

// Publish appends an event to the stream.
func (p *Publisher) Publish(ctx context.Context, event RecordEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})

	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish record event",
			logger.String("event_type", string(event.EventType)),
			logger.Int64("record_id", event.RecordID),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Published record event",
		logger.String("event_type", string(event.EventType)),
		logger.Int64("record_id", event.RecordID),
		logger.String("stream_id", result.Val()),
	)
	return nil
}
