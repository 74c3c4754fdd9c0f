package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/pkg/circuitbreaker"
	"github.com/jwalitptl/radiology-api/pkg/messaging"
)

const subscribeBuffer = 100

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

// Broker publishes over redis pub/sub. Publishes go through a circuit
// breaker so a dead redis degrades to fast failures instead of stalling
// request handling.
type Broker struct {
	client *redis.Client
	cb     *circuitbreaker.Breaker
	logger *zerolog.Logger
}

func NewRedisBroker(cfg Config, logger *zerolog.Logger) (messaging.Broker, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.MinRetryBackoff = cfg.RetryBackoff
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Broker{
		client: client,
		cb: circuitbreaker.New(circuitbreaker.Config{
			Name:             "redis-broker",
			FailureThreshold: 5,
			Cooldown:         5 * time.Second,
		}),
		logger: logger,
	}, nil
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.cb.Do(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
}

// Subscribe delivers raw payloads for the channel until ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	out := make(chan []byte, subscribeBuffer)

	go func() {
		defer pubsub.Close()
		defer close(out)

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Warn().Err(err).Str("channel", channel).Msg("receive failed")
				continue
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}
