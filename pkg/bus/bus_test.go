package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var got []int

	done := make(chan struct{}, 10)
	b.Subscribe(TopicFieldValueSet, 16, func(payload any) {
		mu.Lock()
		got = append(got, payload.(int))
		mu.Unlock()
		done <- struct{}{}
	})

	for i := 0; i < 5; i++ {
		b.Publish(TopicFieldValueSet, i)
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestOverflowDropsOldestAndCounts(t *testing.T) {
	b := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	sub := b.Subscribe(TopicFieldValueSet, 2, func(payload any) {
		once.Do(func() { close(started) })
		<-release
	})

	b.Publish(TopicFieldValueSet, "first")
	<-started // first event now blocking inside the handler

	b.Publish(TopicFieldValueSet, "a")
	b.Publish(TopicFieldValueSet, "b")
	b.Publish(TopicFieldValueSet, "c") // queue cap 2: "a" should be dropped

	close(release)
	time.Sleep(20 * time.Millisecond)
	require.GreaterOrEqual(t, sub.Dropped(), uint64(1))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	var mu sync.Mutex

	sub := b.Subscribe(TopicSchemaChanged, 4, func(payload any) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	b.Publish(TopicSchemaChanged, "x")
	time.Sleep(10 * time.Millisecond)
	sub.Unsubscribe()
	b.Publish(TopicSchemaChanged, "y")
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count)
	require.Equal(t, 0, b.SubscriberCount(TopicSchemaChanged))
}

func TestAskRespondRoundTrip(t *testing.T) {
	b := New()
	b.Subscribe(TopicSchemaLoaded, 4, func(payload any) {
		req, ok := payload.(Request)
		if !ok {
			return
		}
		b.Respond(req.CorrelationID, "approved", nil)
	})

	result, err := b.Ask(TopicSchemaLoaded, "Post", time.Second)
	require.NoError(t, err)
	require.Equal(t, "approved", result)
}

func TestAskTimesOutWithNoResponder(t *testing.T) {
	b := New()
	_, err := b.Ask(TopicSchemaLoaded, "Post", 20*time.Millisecond)
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindRequestTimeout, kind)
}

func TestWithBusMetricsRecordsPublishDropsAndSubscriberCount(t *testing.T) {
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_bus_published_total"}, []string{"topic"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_bus_dropped_total"}, []string{"topic"})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_bus_queue_depth"}, []string{"topic"})
	subscriberCount := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_bus_subscriber_count"}, []string{"topic"})

	b := New(WithBusMetrics(published, dropped, queueDepth, subscriberCount))

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	sub := b.Subscribe(TopicFieldValueSet, 2, func(payload any) {
		once.Do(func() { close(started) })
		<-release
	})
	require.Equal(t, float64(1), testutil.ToFloat64(subscriberCount.WithLabelValues(TopicFieldValueSet)))

	b.Publish(TopicFieldValueSet, "first")
	<-started

	b.Publish(TopicFieldValueSet, "a")
	b.Publish(TopicFieldValueSet, "b")
	b.Publish(TopicFieldValueSet, "c") // queue cap 2: "a" should be dropped

	close(release)
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, float64(4), testutil.ToFloat64(published.WithLabelValues(TopicFieldValueSet)))
	require.GreaterOrEqual(t, testutil.ToFloat64(dropped.WithLabelValues(TopicFieldValueSet)), float64(1))

	sub.Unsubscribe()
	require.Equal(t, float64(0), testutil.ToFloat64(subscriberCount.WithLabelValues(TopicFieldValueSet)))
}
