// Package bus provides the in-process event bus that decouples the broker
// client from the orchestrator and downstream consumers. Each subscription
// owns an independent bounded queue; publication applies drop-oldest
// backpressure so a slow consumer never blocks the producer or starves the
// fast ones.
package bus

import (
	"log"
	"sync"
	"sync/atomic"
)

// DefaultMaxQueueSize bounds each subscriber queue when no size is given.
const DefaultMaxQueueSize = 10_000

// Topics published by the pipeline.
const (
	TopicTick          = "tick"
	TopicTickProcessed = "tick_processed"
	TopicCandle        = "candle"
	TopicTFCandle      = "tf_candle"
	TopicTFIndicators  = "tf_indicators"
	TopicSignal        = "signal"
	TopicTradeOpened   = "trade_opened"
	TopicTradeClosed   = "trade_closed"
)

type subscriber struct {
	name string
	ch   chan any
}

// Bus is a topic-keyed fan-out with per-subscriber bounded queues.
// Delivery is at-most-once per subscriber, FIFO per (topic, subscriber).
type Bus struct {
	mu       sync.RWMutex
	maxQueue int
	subs     map[string][]*subscriber

	dropped atomic.Uint64

	// OnDrop is called when an element is evicted for a slow subscriber.
	OnDrop func(topic, consumer string)
}

// New creates a Bus. maxQueueSize <= 0 selects DefaultMaxQueueSize.
func New(maxQueueSize int) *Bus {
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	}
	return &Bus{
		maxQueue: maxQueueSize,
		subs:     make(map[string][]*subscriber),
	}
}

// Subscribe registers a named consumer on a topic and returns its queue.
func (b *Bus) Subscribe(topic, consumer string) <-chan any {
	sub := &subscriber{name: consumer, ch: make(chan any, b.maxQueue)}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	log.Printf("[bus] consumer %q subscribed to %q (max_queue=%d)", consumer, topic, b.maxQueue)
	return sub.ch
}

// Publish delivers payload to every subscriber of topic. If a subscriber
// queue is full, the oldest queued element is evicted to admit the new one
// (drop-oldest). Publish never blocks.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- payload:
			continue
		default:
		}

		// Queue full: evict the oldest, then retry once. The consumer may
		// race us and drain the queue between the two steps; either way the
		// new payload goes in.
		select {
		case <-sub.ch:
			b.dropped.Add(1)
			if b.OnDrop != nil {
				b.OnDrop(topic, sub.name)
			} else {
				log.Printf("[bus] queue full for %q on %q, dropped oldest", sub.name, topic)
			}
		default:
		}

		select {
		case sub.ch <- payload:
		default:
			// Should not happen under drop-oldest; log, never surface.
			log.Printf("[bus] could not enqueue for %q on %q after eviction", sub.name, topic)
		}
	}
}

// UnsubscribeAll removes every subscriber of topic. An empty topic removes
// all subscribers on all topics (shutdown cleanup).
func (b *Bus) UnsubscribeAll(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic != "" {
		delete(b.subs, topic)
		log.Printf("[bus] all subscribers removed from %q", topic)
		return
	}
	b.subs = make(map[string][]*subscriber)
	log.Printf("[bus] all subscribers removed")
}

// SubscriberCount returns the total number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Dropped returns the total number of drop-oldest evictions.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// ChannelStat reports queue occupancy for one subscription.
type ChannelStat struct {
	Topic    string
	Consumer string
	Len      int
	Cap      int
}

// ChannelStats returns occupancy for every subscription, used for the
// queue-saturation gauge.
func (b *Bus) ChannelStats() []ChannelStat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var stats []ChannelStat
	for topic, subs := range b.subs {
		for _, sub := range subs {
			stats = append(stats, ChannelStat{
				Topic:    topic,
				Consumer: sub.name,
				Len:      len(sub.ch),
				Cap:      cap(sub.ch),
			})
		}
	}
	return stats
}
