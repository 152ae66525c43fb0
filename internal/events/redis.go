package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes completion events on a Redis pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisSink(redisURL, channel string, logger *slog.Logger) (*RedisSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisSink{
		client:  redis.NewClient(opts),
		channel: channel,
		logger:  logger,
	}, nil
}

// Ping verifies connectivity at startup.
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisSink) Publish(ctx context.Context, evt OcrCompleted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", s.channel, err)
	}
	s.logger.Debug("event published", "channel", s.channel, "job_id", evt.JobID)
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
