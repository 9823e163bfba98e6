package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, event Event) error

// Subscriber feeds the events of one stream to a Handler through a consumer
// group. A message is acknowledged only once the handler succeeds; failed
// messages stay in the consumer's pending list and are handed to the handler
// again every RetryInterval. Messages that cannot be decoded are dropped. Pending messages left by
// an earlier run of the same consumer are drained on start.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryInterval time.Duration
	logger        log.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	RetryInterval time.Duration
	Logger        log.Logger
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = time.Second
	}
	if config.Logger == nil {
		config.Logger = log.NewNopLogger()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryInterval: config.RetryInterval,
		logger:        log.With(config.Logger, "stream", config.Stream, "group", config.Group, "consumer", config.Consumer),
	}
}

// Start consumes the stream until ctx is cancelled. It returns ctx.Err() on shutdown.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	_ = level.Info(s.logger).Log("msg", "subscriber started")

	var (
		pending   = true
		nextRetry time.Time
	)
	for {
		if ctx.Err() != nil {
			_ = level.Info(s.logger).Log("msg", "subscriber stopping")
			return ctx.Err()
		}

		if pending && !time.Now().Before(nextRetry) {
			failed, err := s.drainPending(ctx)
			switch {
			case err != nil && ctx.Err() != nil:
				continue
			case err != nil:
				_ = level.Error(s.logger).Log("msg", "error reading pending messages", "err", err)
				nextRetry = time.Now().Add(s.retryInterval)
			case failed > 0:
				nextRetry = time.Now().Add(s.retryInterval)
			default:
				pending = false
			}
		}

		block := s.blockDuration
		if pending {
			if until := time.Until(nextRetry); until < block {
				block = until
			}
			if block < time.Millisecond {
				block = time.Millisecond
			}
		}
		failed, err := s.readNew(ctx, block)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			_ = level.Error(s.logger).Log("msg", "error reading messages", "err", err)
			s.sleep(ctx, s.retryInterval)
			continue
		}
		if failed > 0 && !pending {
			pending = true
			nextRetry = time.Now().Add(s.retryInterval)
		}
	}
}

// readNew reads messages never delivered to the group and returns how many
// of them the handler failed.
func (s *Subscriber) readNew(ctx context.Context, block time.Duration) (int, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	failed := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if !s.handle(ctx, message) {
				failed++
			}
		}
	}
	return failed, nil
}

// drainPending walks this consumer's pending list once, oldest first, and
// returns how many messages the handler failed again.
func (s *Subscriber) drainPending(ctx context.Context) (int, error) {
	var (
		start  = "0"
		failed int
	)
	for {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, start},
			Count:    s.batchSize,
			Block:    -1,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return failed, nil
		}
		if err != nil {
			return failed, fmt.Errorf("failed to read pending messages: %w", err)
		}

		var n int64
		for _, stream := range streams {
			for _, message := range stream.Messages {
				n++
				start = message.ID
				if !s.handle(ctx, message) {
					failed++
				}
			}
		}
		if n < s.batchSize {
			return failed, nil
		}
	}
}

// handle runs the handler on message and acknowledges it on success.
func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) bool {
	// Entries trimmed from the stream while pending come back without values.
	if message.Values == nil {
		_ = level.Warn(s.logger).Log("msg", "pending message no longer in stream", "id", message.ID)
		s.ack(ctx, message.ID)
		return true
	}
	event, err := decodeMessage(message)
	if err != nil {
		_ = level.Error(s.logger).Log("msg", "dropping malformed message", "id", message.ID, "err", err)
		s.ack(ctx, message.ID)
		return true
	}
	if err := s.handler(ctx, event); err != nil {
		_ = level.Error(s.logger).Log("msg", "failed to process message", "id", message.ID, "type", event.Type, "err", err)
		return false
	}
	s.ack(ctx, message.ID)
	return true
}

func (s *Subscriber) ack(ctx context.Context, id string) {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		_ = level.Warn(s.logger).Log("msg", "failed to ACK message", "id", id, "err", err)
	}
}

func decodeMessage(message redis.XMessage) (Event, error) {
	var event Event
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return event, fmt.Errorf("invalid message format")
	}
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
