package bus

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/observability"
)

// Well-known topics named in the orchestrator/schema/field-manager protocol.
const (
	TopicFieldValueSet      = "field_value_set"
	TopicSchemaLoaded       = "schema_loaded"
	TopicSchemaChanged      = "schema_changed"
	TopicTransformTriggered = "transform_triggered"
	TopicTransformExecuted  = "transform_executed"
)

// DefaultQueueCapacity is the per-subscriber queue depth used when
// Subscribe's capacity argument is <= 0.
const DefaultQueueCapacity = 256

// Bus is the in-process typed publish/subscribe hub. The zero value is not
// usable; construct with New.
type Bus struct {
	log     *observability.Logger
	metrics *busMetrics

	mu   sync.RWMutex
	subs map[string][]*subscription
	next atomic.Uint64

	requests *requestTable
}

type busMetrics struct {
	publishedTotal  *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
	subscriberCount *prometheus.GaugeVec
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithLogger attaches a logger used to report subscriber panics.
func WithLogger(log *observability.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// WithBusMetrics attaches Prometheus instruments tracking publish volume,
// overflow drops, per-subscriber queue depth, and subscriber counts, all
// labeled by topic.
func WithBusMetrics(publishedTotal, droppedTotal *prometheus.CounterVec, queueDepth, subscriberCount *prometheus.GaugeVec) Option {
	return func(b *Bus) {
		b.metrics = &busMetrics{
			publishedTotal:  publishedTotal,
			droppedTotal:    droppedTotal,
			queueDepth:      queueDepth,
			subscriberCount: subscriberCount,
		}
	}
}

// New builds an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[string][]*subscription),
		requests: newRequestTable(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return b
}

// Subscribe registers handler on topic with a bounded queue of capacity
// (DefaultQueueCapacity if capacity <= 0). Returns a handle that can
// Unsubscribe.
func (b *Bus) Subscribe(topic string, capacity int, handler Handler) Subscription {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	id := b.next.Add(1)
	sub := newSubscription(id, topic, capacity, handler, b.log, b.metrics)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	count := len(b.subs[topic])
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.subscriberCount.WithLabelValues(topic).Set(float64(count))
	}

	return Subscription{bus: b, topic: topic, sub: sub}
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	list := b.subs[topic]
	var count int
	for i, s := range list {
		if s.id == id {
			b.subs[topic] = append(list[:i], list[i+1:]...)
			count = len(b.subs[topic])
			b.mu.Unlock()
			if b.metrics != nil {
				b.metrics.subscriberCount.WithLabelValues(topic).Set(float64(count))
			}
			return
		}
	}
	b.mu.Unlock()
}

// Publish delivers payload to every current subscriber of topic. Publish
// never blocks: each subscriber's own bounded queue absorbs the event or
// drops its oldest entry on overflow.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.publishedTotal.WithLabelValues(topic).Inc()
	}

	for _, s := range subs {
		s.deliver(payload)
	}
}

// SubscriberCount reports how many subscribers topic currently has.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
