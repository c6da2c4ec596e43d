// Package redis mirrors pipeline events to Redis PubSub so dashboards and
// other processes can follow the engine without attaching to its in-process
// bus. Publishing is best-effort; a Redis outage never stalls the pipeline.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"quantpulse/internal/model"
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Publisher fans pipeline events out to Redis channels named
// pub:<topic>:<symbol>. It implements model.EventPublisher.
type Publisher struct {
	rdb *goredis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config) (*Publisher, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{rdb: rdb}, nil
}

// Client returns the underlying client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.rdb }

// Publish sends payload to a Redis channel.
func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// RunTopic consumes one bus topic and republishes every event to Redis
// until ctx is cancelled or the channel closes. Events whose symbol cannot
// be determined are skipped with a log line.
func (p *Publisher) RunTopic(ctx context.Context, topic string, ch <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			symbol, data := encode(payload)
			if symbol == "" {
				log.Printf("[redis] skipping %T event on %q, no symbol", payload, topic)
				continue
			}
			channel := "pub:" + topic + ":" + symbol
			if err := p.Publish(ctx, channel, data); err != nil {
				log.Printf("[redis] publish to %s: %v", channel, err)
			}
		}
	}
}

// encode extracts the symbol and JSON body from a pipeline event.
func encode(payload any) (symbol string, data []byte) {
	switch v := payload.(type) {
	case model.Tick:
		return v.Symbol, v.JSON()
	case model.Candle:
		return v.Symbol, v.JSON()
	case model.IndicatorSnapshot:
		return v.Symbol, v.JSON()
	case model.Signal:
		return v.Symbol, v.JSON()
	case *model.SimulatedTrade:
		return v.Symbol, v.JSON()
	default:
		return "", nil
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
