package bus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/platinummonkey/foldcore/pkg/observability"
)

// Handler processes one delivered event. Panics are recovered and logged;
// they never crash the subscriber's worker.
type Handler func(payload any)

// subscription is one subscriber's bounded, dedicated-worker queue for a
// single topic.
type subscription struct {
	id      uint64
	topic   string
	handler Handler
	log     *observability.Logger
	metrics *busMetrics

	mu   sync.Mutex
	ch   chan any
	done chan struct{}

	dropped atomic.Uint64
}

func newSubscription(id uint64, topic string, capacity int, handler Handler, log *observability.Logger, metrics *busMetrics) *subscription {
	s := &subscription{
		id:      id,
		topic:   topic,
		handler: handler,
		log:     log,
		metrics: metrics,
		ch:      make(chan any, capacity),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// deliver enqueues payload, dropping the oldest queued item (not the new
// one) when the queue is already at capacity.
func (s *subscription) deliver(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.recordQueueDepth()

	select {
	case s.ch <- payload:
		return
	default:
	}

	select {
	case <-s.ch:
		s.recordDrop()
	default:
	}

	select {
	case s.ch <- payload:
	default:
		s.recordDrop()
	}
}

func (s *subscription) recordDrop() {
	s.dropped.Add(1)
	if s.metrics != nil {
		s.metrics.droppedTotal.WithLabelValues(s.topic).Inc()
	}
}

func (s *subscription) recordQueueDepth() {
	if s.metrics != nil {
		s.metrics.queueDepth.WithLabelValues(s.topic).Set(float64(len(s.ch)))
	}
}

func (s *subscription) run() {
	for {
		select {
		case payload := <-s.ch:
			s.invoke(payload)
		case <-s.done:
			return
		}
	}
}

func (s *subscription) invoke(payload any) {
	defer observability.RecoverPanic(s.log, fmt.Sprintf("bus subscriber on topic %q", s.topic))
	s.handler(payload)
}

// Dropped returns the number of events dropped for overflow on this
// subscription so far.
func (s *subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *subscription) close() {
	close(s.done)
}

// Subscription is the handle returned from Bus.Subscribe.
type Subscription struct {
	bus   *Bus
	topic string
	sub   *subscription
}

// Unsubscribe stops the subscription's worker and removes it from the bus.
// In-flight deliveries are not interrupted; queued-but-undelivered events
// are discarded.
func (h Subscription) Unsubscribe() {
	h.bus.remove(h.topic, h.sub.id)
	h.sub.close()
}

// Dropped returns the number of events dropped for overflow on this
// subscription so far.
func (h Subscription) Dropped() uint64 {
	return h.sub.Dropped()
}
