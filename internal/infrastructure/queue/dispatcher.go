package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/api/metrics"
	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes realtime events to a fixed set of workers using consistent
// hashing on the topic, guaranteeing per-topic publish ordering.
type Dispatcher struct {
	workers []chan domain.Event
	bus     ports.Bus
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, bus ports.Bus, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Event, numWorkers),
		bus:     bus,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Event, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// when ctx is cancelled; Wait blocks until they are done.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue sends an event to the worker responsible for its topic.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(evt domain.Event) {
	idx := d.shardIndex(evt.Topic)
	d.workers[idx] <- evt
	metrics.RealtimeQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a topic deterministically to a worker index.
func (d *Dispatcher) shardIndex(topic string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Event) {
	defer d.wg.Done()
	depth := metrics.RealtimeQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case evt := <-ch:
			depth.Set(float64(len(ch)))
			d.publish(ctx, id, evt)
		}
	}
}

// drain publishes what is already queued so a shutdown does not silently
// drop events that were committed before it.
func (d *Dispatcher) drain(id int, ch <-chan domain.Event) {
	for {
		select {
		case evt := <-ch:
			d.publish(context.Background(), id, evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, id int, evt domain.Event) {
	if err := d.bus.Publish(ctx, evt); err != nil {
		metrics.RealtimePublishedTotal.WithLabelValues(string(evt.Type), "error").Inc()
		d.log.Error().Err(err).
			Str("topic", evt.Topic).
			Str("type", string(evt.Type)).
			Int("worker_id", id).
			Msg("event publish failed")
		return
	}
	metrics.RealtimePublishedTotal.WithLabelValues(string(evt.Type), "ok").Inc()
}
