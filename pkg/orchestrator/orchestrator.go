package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/foldcore/pkg/async"
	"github.com/platinummonkey/foldcore/pkg/bus"
	"github.com/platinummonkey/foldcore/pkg/field"
	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/observability"
	"github.com/platinummonkey/foldcore/pkg/schema"
	"github.com/platinummonkey/foldcore/pkg/transform"
)

// SystemSigner is the identity the orchestrator reads/writes fields under.
// Transform execution is an internal system action, not a client mutation,
// so it is exempt from per-field permission policy.
const SystemSigner = schema.SystemSigner

// DefaultProcessedSetSize bounds the LRU set of already-processed
// (transform_id, mutation_id) pairs.
const DefaultProcessedSetSize = 10_000

// DefaultQueueCapacity bounds the work queue.
const DefaultQueueCapacity = 4096

// QueueItem is one unit of pending work: run transformID for mutationID.
type QueueItem struct {
	TransformID string
	MutationID  string
}

// Executed is published on bus.TopicTransformExecuted after each attempt.
type Executed struct {
	TransformID string
	Result      json.RawMessage
	Err         error
}

// SchemaLookup is the subset of *schema.SchemaCore the orchestrator needs to
// gate a transform's output write on the target schema's lifecycle state.
type SchemaLookup interface {
	CanMutate(name string) (bool, error)
}

// Orchestrator drives transform execution from FieldValueSet notifications.
type Orchestrator struct {
	transforms *transform.Store
	fields     *field.Manager
	eval       transform.Eval
	b          *bus.Bus
	schemas    SchemaLookup
	log        *observability.Logger

	queueDepth        prometheus.Gauge
	transformDuration *prometheus.HistogramVec
	executionsTotal   *prometheus.CounterVec

	retryBackoff time.Duration

	mu                sync.RWMutex
	fieldToTransforms map[string][]string

	processed         *lru.Cache[string, struct{}]
	processedCapacity int
	queue             chan QueueItem
	queueCapacity     int
	pending           []QueueItem // items held back after a storage error, retried before new work

	transformTimeout time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithLogger attaches a logger for executor diagnostics.
func WithLogger(log *observability.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithTransformTimeout bounds how long a single eval() call may run.
func WithTransformTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.transformTimeout = d }
}

// WithRetryBackoff sets the pause between retries of an item that failed
// with a storage-class error.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *Orchestrator) { o.retryBackoff = d }
}

// WithProcessedSetCapacity overrides the bounded LRU size used to dedupe
// (transform_id, mutation_id) pairs.
func WithProcessedSetCapacity(n int) Option {
	return func(o *Orchestrator) { o.processedCapacity = n }
}

// WithQueueCapacity overrides the work queue's buffer size.
func WithQueueCapacity(n int) Option {
	return func(o *Orchestrator) { o.queueCapacity = n }
}

// WithExecutionMetrics wires the orchestrator's work queue depth, transform
// duration, and execution outcome instruments. Typically the
// OrchestratorQueueDepth/OrchestratorTransformDuration/
// OrchestratorExecutionsTotal instruments from an *observability.Metrics.
func WithExecutionMetrics(queueDepth prometheus.Gauge, transformDuration *prometheus.HistogramVec, executionsTotal *prometheus.CounterVec) Option {
	return func(o *Orchestrator) {
		o.queueDepth = queueDepth
		o.transformDuration = transformDuration
		o.executionsTotal = executionsTotal
	}
}

// New builds an Orchestrator over transforms/fields/schemas/b, subscribes to
// FieldValueSet and SchemaChanged, rebuilds its indices, and starts the
// single executor worker.
func New(transforms *transform.Store, fields *field.Manager, schemas SchemaLookup, eval transform.Eval, b *bus.Bus, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		transforms:        transforms,
		fields:            fields,
		schemas:           schemas,
		eval:              eval,
		b:                 b,
		fieldToTransforms: make(map[string][]string),
		processedCapacity: DefaultProcessedSetSize,
		queueCapacity:     DefaultQueueCapacity,
		transformTimeout:  5 * time.Second,
		retryBackoff:      200 * time.Millisecond,
		stop:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}

	processed, err := lru.New[string, struct{}](o.processedCapacity)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindDatabaseError, "allocate processed set", err)
	}
	o.processed = processed
	o.queue = make(chan QueueItem, o.queueCapacity)

	if err := o.RebuildIndices(); err != nil {
		return nil, err
	}

	b.Subscribe(bus.TopicFieldValueSet, 0, o.onFieldValueSet)
	b.Subscribe(bus.TopicSchemaChanged, 0, o.onSchemaChanged)

	o.wg.Add(1)
	go o.run()

	return o, nil
}

// Close stops the executor worker. Queued items are discarded.
func (o *Orchestrator) Close() {
	close(o.stop)
	o.wg.Wait()
}

// RebuildIndices reloads the field->transform index from every persisted
// Transform, ordering transforms for the same field by CreatedAt (their
// registration order) with id as a tiebreak.
func (o *Orchestrator) RebuildIndices() error {
	all, err := o.transforms.List()
	if err != nil {
		return err
	}

	next := make(map[string][]string)
	for _, t := range all {
		for _, input := range t.Inputs {
			next[input] = append(next[input], t.ID)
		}
	}
	for _, ids := range next {
		sortByRegistration(all, ids)
	}

	o.mu.Lock()
	o.fieldToTransforms = next
	o.mu.Unlock()
	return nil
}

func sortByRegistration(all []*transform.Transform, ids []string) {
	byID := make(map[string]*transform.Transform, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			a, b := byID[ids[j-1]], byID[ids[j]]
			if a == nil || b == nil || !a.CreatedAt.After(b.CreatedAt) {
				break
			}
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func (o *Orchestrator) onSchemaChanged(any) {
	if err := o.RebuildIndices(); err != nil && o.log != nil {
		o.log.WithError(err).Error("orchestrator failed to rebuild indices after schema change")
	}
}

func (o *Orchestrator) onFieldValueSet(payload any) {
	vs, ok := payload.(field.ValueSet)
	if !ok {
		return
	}
	path := vs.Schema + "." + vs.Field

	o.mu.RLock()
	transformIDs := append([]string(nil), o.fieldToTransforms[path]...)
	o.mu.RUnlock()

	for _, id := range transformIDs {
		item := QueueItem{TransformID: id, MutationID: vs.MutationID}
		select {
		case o.queue <- item:
			if o.queueDepth != nil {
				o.queueDepth.Inc()
			}
		default:
			if o.log != nil {
				o.log.WithFields(map[string]interface{}{"transform_id": id, "mutation_id": vs.MutationID}).
					Warn("orchestrator work queue full, dropping item")
			}
		}
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()
	for {
		item, ok := o.nextItem()
		if !ok {
			return
		}
		o.process(item)
	}
}

// nextItem prefers previously-retried items over new queue arrivals, so a
// storage error genuinely blocks new work until it clears.
func (o *Orchestrator) nextItem() (QueueItem, bool) {
	if len(o.pending) > 0 {
		item := o.pending[0]
		o.pending = o.pending[1:]
		return item, true
	}
	select {
	case item := <-o.queue:
		if o.queueDepth != nil {
			o.queueDepth.Dec()
		}
		return item, true
	case <-o.stop:
		return QueueItem{}, false
	}
}

func (o *Orchestrator) processedKey(item QueueItem) string {
	return item.TransformID + "|" + item.MutationID
}

func (o *Orchestrator) process(item QueueItem) {
	key := o.processedKey(item)
	if _, ok := o.processed.Get(key); ok {
		return
	}

	start := time.Now()
	result, err := o.execute(item)
	if err != nil {
		if isStorageError(err) {
			o.pending = append([]QueueItem{item}, o.pending...)
			time.Sleep(o.retryBackoff)
			return
		}
		o.recordExecution(item.TransformID, "error", time.Since(start))
		o.processed.Add(key, struct{}{})
		o.b.Publish(bus.TopicTransformExecuted, Executed{TransformID: item.TransformID, Err: err})
		return
	}

	o.recordExecution(item.TransformID, "success", time.Since(start))
	o.processed.Add(key, struct{}{})
	o.b.Publish(bus.TopicTransformExecuted, Executed{TransformID: item.TransformID, Result: result})
}

func (o *Orchestrator) recordExecution(transformID, status string, duration time.Duration) {
	if o.transformDuration != nil {
		o.transformDuration.WithLabelValues(transformID).Observe(duration.Seconds())
	}
	if o.executionsTotal != nil {
		o.executionsTotal.WithLabelValues(transformID, status).Inc()
	}
}

func (o *Orchestrator) execute(item QueueItem) (json.RawMessage, error) {
	t, err := o.transforms.Get(item.TransformID)
	if err != nil {
		return nil, err
	}

	values, err := o.resolveInputs(t)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.transformTimeout)
	defer cancel()

	type evalResult struct {
		out json.RawMessage
		err error
	}
	resultCh := make(chan evalResult, 1)
	async.SafeGo(ctx, o.transformTimeout, fmt.Sprintf("transform:%s", t.ID), func(ctx context.Context) error {
		defer observability.RecoverPanicWithCallback(o.log, fmt.Sprintf("transform:%s", t.ID), func() {
			resultCh <- evalResult{err: folderrors.New(folderrors.KindTransformExecutionFailed, "transform evaluation panicked", "transform_id", t.ID)}
		})
		out, err := o.eval(t.Logic, values)
		resultCh <- evalResult{out: out, err: err}
		return err
	})

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, folderrors.Wrap(folderrors.KindTransformExecutionFailed, "eval failed", r.err, "transform_id", t.ID)
		}
		schemaName, fieldName, err := splitPath(t.Output)
		if err != nil {
			return nil, err
		}
		canMutate, err := o.schemas.CanMutate(schemaName)
		if err != nil {
			return nil, folderrors.Wrap(folderrors.KindTransformExecutionFailed, "check output schema state", err, "transform_id", t.ID, "schema", schemaName)
		}
		if !canMutate {
			return nil, folderrors.New(folderrors.KindTransformExecutionFailed, "transform output schema is not Approved",
				"transform_id", t.ID, "schema", schemaName)
		}
		if _, err := o.fields.WriteField(schemaName, fieldName, r.out, SystemSigner, field.WithMutationID(item.MutationID)); err != nil {
			return nil, err
		}
		return r.out, nil
	case <-ctx.Done():
		return nil, folderrors.New(folderrors.KindTransformExecutionFailed, "transform exceeded wall-clock limit",
			"transform_id", t.ID, "timeout", o.transformTimeout.String())
	}
}

// resolveInputs reads every input field a transform depends on. Reads fan out
// one goroutine per input via errgroup, since they touch independent trees in
// the KV engine and don't benefit from serialization; the first read error
// cancels the group and is returned.
func (o *Orchestrator) resolveInputs(t *transform.Transform) (map[string]json.RawMessage, error) {
	fieldNames := make([]string, len(t.Inputs))
	values := make([]json.RawMessage, len(t.Inputs))

	g, _ := errgroup.WithContext(context.Background())
	for i, path := range t.Inputs {
		i, path := i, path
		g.Go(func() error {
			schemaName, fieldName, err := splitPath(path)
			if err != nil {
				return err
			}
			v, err := o.fields.ReadField(schemaName, fieldName, SystemSigner)
			if err != nil {
				return err
			}
			fieldNames[i] = fieldName
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(t.Inputs))
	for i, name := range fieldNames {
		out[name] = values[i]
	}
	return out, nil
}

func splitPath(path string) (schemaName, fieldName string, err error) {
	idx := strings.Index(path, ".")
	if idx < 0 {
		return "", "", folderrors.New(folderrors.KindInvalidFieldOperation, "malformed field path", "path", path)
	}
	return path[:idx], path[idx+1:], nil
}

func isStorageError(err error) bool {
	kind, ok := folderrors.KindOf(err)
	return ok && kind == folderrors.KindDatabaseError
}
