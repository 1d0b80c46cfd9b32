package ports

import (
	"context"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// Bus is the realtime publish/subscribe transport. It is not a backlog:
// subscribers only see events published while they are subscribed.
type Bus interface {
	// Publish delivers evt to the live subscribers of evt.Topic.
	Publish(ctx context.Context, evt domain.Event) error
	// Subscribe returns a channel of events for topic, in publish order. The
	// channel is closed when ctx ends or the bus drops the subscriber.
	Subscribe(ctx context.Context, topic string) (<-chan domain.Event, error)
}

// EventPublisher hands events to the ordered fan-out stage. Events enqueued
// for the same topic are published in enqueue order.
type EventPublisher interface {
	Enqueue(evt domain.Event)
}
