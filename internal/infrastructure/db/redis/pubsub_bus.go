package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
)

const (
	defaultSubscriberBuffer = 64
	// idle subscriptions are pinged this often to notice a dead connection
	defaultHealthCheck = 30 * time.Second
)

// PubSubBus is a realtime bus backed by Redis pub/sub. Each topic maps to one
// Redis channel, so every instance of the service sees every publish.
type PubSubBus struct {
	client      *redis.Client
	prefix      string
	buffer      int
	healthCheck time.Duration
	log         zerolog.Logger
}

// NewPubSubBus creates a bus publishing to channels named prefix+topic.
func NewPubSubBus(client *redis.Client, prefix string, buffer int, log zerolog.Logger) *PubSubBus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &PubSubBus{client: client, prefix: prefix, buffer: buffer, healthCheck: defaultHealthCheck, log: log}
}

func (b *PubSubBus) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+evt.Topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Topic, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are never missed. The channel is closed when the
// subscriber lets its buffer fill up or when the connection to Redis is lost:
// events published during an outage are gone, so the caller must reconcile
// from the durable log instead of waiting on a silently resubscribed channel.
func (b *PubSubBus) Subscribe(ctx context.Context, topic string) (<-chan domain.Event, error) {
	ps := b.client.Subscribe(ctx, b.prefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan domain.Event, b.buffer)
	metrics.RealtimeSubscribers.Inc()

	go func() {
		defer metrics.RealtimeSubscribers.Dec()
		defer close(out)
		defer ps.Close()
		stop := context.AfterFunc(ctx, func() { _ = ps.Close() })
		defer stop()

		log := b.log.With().Str("topic", topic).Logger()
		for {
			msg, err := ps.ReceiveTimeout(ctx, b.healthCheck)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if isTimeout(err) {
					if err := ps.Ping(ctx); err == nil {
						continue
					}
				}
				log.Warn().Err(err).Msg("subscription connection lost")
				return
			}

			switch m := msg.(type) {
			case *redis.Subscription:
				// A fresh confirmation means the client reconnected behind
				// our back.
				if m.Kind == "subscribe" {
					log.Warn().Msg("subscription re-established, dropping subscriber")
					return
				}
			case *redis.Message:
				var evt domain.Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					log.Warn().Err(err).Str("channel", m.Channel).Msg("dropping malformed event")
					continue
				}
				select {
				case out <- evt:
				default:
					metrics.RealtimeEvictionsTotal.Inc()
					log.Warn().Msg("subscriber too slow, evicted")
					return
				}
			}
		}
	}()

	return out, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
