// Package realtime holds the in-process realtime bus used when a single
// instance serves every websocket client.
package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
)

const defaultBuffer = 64

type subscriber struct {
	topic string
	ch    chan domain.Event
}

// MemoryBus fans events out to the subscribers of their topic. Publish never
// blocks: a subscriber whose buffer is full is evicted and its channel closed,
// which tells the client to reconcile through the message log.
type MemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[int]*subscriber
	byID   map[int]*subscriber
	next   int
	buffer int
	log    zerolog.Logger
}

func NewMemoryBus(buffer int, log zerolog.Logger) *MemoryBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBus{
		topics: make(map[string]map[int]*subscriber),
		byID:   make(map[int]*subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a subscriber for topic. The channel is closed when ctx
// ends or the subscriber is evicted.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (<-chan domain.Event, error) {
	sub := &subscriber{topic: topic, ch: make(chan domain.Event, b.buffer)}

	b.mu.Lock()
	id := b.next
	b.next++
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]*subscriber)
	}
	b.topics[topic][id] = sub
	b.byID[id] = sub
	b.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.remove(id)
		b.mu.Unlock()
	}()

	return sub.ch, nil
}

func (b *MemoryBus) Publish(_ context.Context, evt domain.Event) error {
	var slow []int

	b.mu.RLock()
	for id, sub := range b.topics[evt.Topic] {
		select {
		case sub.ch <- evt:
		default:
			slow = append(slow, id)
		}
	}
	b.mu.RUnlock()

	if len(slow) == 0 {
		return nil
	}
	b.mu.Lock()
	for _, id := range slow {
		if b.remove(id) {
			metrics.RealtimeEvictionsTotal.Inc()
			b.log.Warn().Str("topic", evt.Topic).Int("subscriber", id).Msg("subscriber too slow, evicted")
		}
	}
	b.mu.Unlock()
	return nil
}

// Subscribers returns the number of live subscribers of topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// remove drops subscriber id and closes its channel. It must be called with
// b.mu held and reports whether the subscriber was still registered.
func (b *MemoryBus) remove(id int) bool {
	sub, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)
	delete(b.topics[sub.topic], id)
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
	close(sub.ch)
	metrics.RealtimeSubscribers.Dec()
	return true
}
