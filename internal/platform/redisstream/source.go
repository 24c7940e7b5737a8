// Package redisstream delivers notification events over Redis pub/sub
// channels. Intended for LAN deployments where the hub and the device share
// a Redis instance and cloud round-trips are unwanted.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Config names the two pub/sub channels.
type Config struct {
	ReceivedChannel  string
	RespondedChannel string
}

type Source struct {
	rdb    *redis.Client
	cfg    Config
	logger *slog.Logger
}

// New connects to Redis and fails fast if the connection is bad.
func New(addr, password string, db int, cfg Config, logger *slog.Logger) (*Source, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Source{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.With("component", "RedisEventSource"),
	}, nil
}

func (s *Source) SubscribeReceived(ctx context.Context, handler func(push.Notification)) (push.Subscription, error) {
	return s.subscribe(ctx, s.cfg.ReceivedChannel, func(payload []byte) error {
		var n push.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return err
		}
		handler(n)
		return nil
	})
}

func (s *Source) SubscribeResponded(ctx context.Context, handler func(push.Response)) (push.Subscription, error) {
	return s.subscribe(ctx, s.cfg.RespondedChannel, func(payload []byte) error {
		var r push.Response
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		handler(r)
		return nil
	})
}

func (s *Source) subscribe(ctx context.Context, channel string, deliver func([]byte) error) (push.Subscription, error) {
	if channel == "" {
		return nil, fmt.Errorf("no channel configured")
	}

	pubsub := s.rdb.Subscribe(ctx, channel)
	// Receive forces the SUBSCRIBE round-trip so a bad channel fails here,
	// not silently inside the read loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s failed: %w", channel, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			if err := deliver([]byte(msg.Payload)); err != nil {
				s.logger.Warn("Dropping malformed event payload.", "channel", channel, "err", err)
			}
		}
	}()

	s.logger.Debug("Subscribed to channel.", "channel", channel)
	return &subscription{id: uuid.NewString(), pubsub: pubsub}, nil
}

// Close releases the underlying Redis client.
func (s *Source) Close() error {
	return s.rdb.Close()
}

type subscription struct {
	id     string
	once   sync.Once
	pubsub *redis.PubSub
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe(context.Context) error {
	var err error
	s.once.Do(func() { err = s.pubsub.Close() })
	return err
}
