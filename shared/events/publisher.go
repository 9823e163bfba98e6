package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen bounds the account events stream. Trimming is
// approximate, so the stream may briefly hold slightly more entries.
const DefaultStreamMaxLen = 100000

// Publisher appends ledger events to a single Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithStream publishes to stream instead of AccountEventsStream.
func WithStream(stream string) PublisherOption {
	return func(p *Publisher) {
		p.stream = stream
	}
}

// WithMaxLen sets the approximate stream length kept after each append.
// Zero disables trimming.
func WithMaxLen(n int64) PublisherOption {
	return func(p *Publisher) {
		if n >= 0 {
			p.maxLen = n
		}
	}
}

// NewPublisher returns a Publisher writing to AccountEventsStream.
func NewPublisher(client *redis.Client, opts ...PublisherOption) *Publisher {
	p := &Publisher{client: client, stream: AccountEventsStream, maxLen: DefaultStreamMaxLen}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream returns the name of the stream events are appended to.
func (p *Publisher) Stream() string {
	return p.stream
}

// Publish wraps data in an Event stamped with the current time and appends it
// to the stream, trimming old entries.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	eventJSON, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]any{
			"event": eventJSON,
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", eventType, p.stream, err)
	}
	return nil
}
