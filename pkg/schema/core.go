package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

// Event is one of the notifications SchemaCore emits after a successful
// load or state transition.
type Event struct {
	Topic string // "schema_loaded" or "schema_changed"
	Name  string
	State State
}

// Publisher is the minimal surface SchemaCore needs from the message bus.
// Defined here rather than importing pkg/bus directly, so schema has no
// dependency on the bus's own dependency graph — pkg/bus imports pkg/schema
// for reload hooks, not the other way around.
type Publisher interface {
	Publish(topic string, payload any)
}

// noopPublisher discards events; used when SchemaCore is built without a
// bus wired in (tests, offline tooling).
type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

// SchemaCore persists schemas and enforces their lifecycle state machine.
// Mutating operations take an exclusive per-name lock; Get/ListByState take
// a shared read lock over the whole table, mirroring the teacher's
// storage-layer locking idiom.
type SchemaCore struct {
	engine *kv.Engine
	pub    Publisher

	transitionsTotal *prometheus.CounterVec

	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// Option configures a SchemaCore at construction.
type Option func(*SchemaCore)

// WithPublisher wires an event publisher (typically a *bus.Bus) into the
// core so Load/Approve/Block announce SchemaLoaded/SchemaChanged.
func WithPublisher(p Publisher) Option {
	return func(c *SchemaCore) { c.pub = p }
}

// WithTransitionMetrics wires a counter incremented on every successful
// state transition, labelled by from/to state. Typically the
// SchemaTransitionsTotal counter from an *observability.Metrics.
func WithTransitionMetrics(counter *prometheus.CounterVec) Option {
	return func(c *SchemaCore) { c.transitionsTotal = counter }
}

// NewCore builds a SchemaCore over engine's "schemas" tree.
func NewCore(engine *kv.Engine, opts ...Option) *SchemaCore {
	c := &SchemaCore{
		engine: engine,
		pub:    noopPublisher{},
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SchemaCore) tree() *kv.Tree { return c.engine.Tree(kv.TreeSchemas) }

func (c *SchemaCore) lockFor(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

func (c *SchemaCore) getLocked(name string) (*Schema, error) {
	data, err := c.tree().Get(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, folderrors.New(folderrors.KindSchemaNotFound, "schema not found", "name", name)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, folderrors.Wrap(folderrors.KindDeserializationError, "decode schema", err)
	}
	return &s, nil
}

func (c *SchemaCore) putLocked(s *Schema) error {
	data, err := json.Marshal(s)
	if err != nil {
		return folderrors.Wrap(folderrors.KindSerializationError, "marshal schema", err)
	}
	return c.tree().Put(s.Name, data)
}

// Load validates and persists s in the Available state, replacing any
// existing schema under the same name. Publishes SchemaLoaded{name, state}.
func (c *SchemaCore) Load(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.State = StateAvailable

	l := c.lockFor(s.Name)
	l.Lock()
	defer l.Unlock()

	if err := c.putLocked(s); err != nil {
		return err
	}
	c.pub.Publish("schema_loaded", Event{Topic: "schema_loaded", Name: s.Name, State: s.State})
	return nil
}

// Approve transitions name from Available to Approved.
func (c *SchemaCore) Approve(name string) (*Schema, error) {
	return c.transition(name, StateApproved)
}

// Block transitions name from Approved to Blocked. Blocked is terminal.
func (c *SchemaCore) Block(name string) (*Schema, error) {
	return c.transition(name, StateBlocked)
}

func (c *SchemaCore) transition(name string, to State) (*Schema, error) {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	s, err := c.getLocked(name)
	if err != nil {
		return nil, err
	}
	if !validTransition(s.State, to) {
		return nil, folderrors.New(folderrors.KindSchemaValidationFailed,
			fmt.Sprintf("invalid state transition %s -> %s", s.State, to),
			"name", name, "from", string(s.State), "to", string(to))
	}
	from := s.State
	s.State = to
	if err := c.putLocked(s); err != nil {
		return nil, err
	}
	if c.transitionsTotal != nil {
		c.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
	c.pub.Publish("schema_changed", Event{Topic: "schema_changed", Name: name, State: to})
	c.pub.Publish("schema_loaded", Event{Topic: "schema_loaded", Name: name, State: to})
	return s, nil
}

// SetFieldRef persists a newly assigned ref_atom_uuid for field on name —
// called by the field manager the first time a field is written, since the
// backing AtomRef uuid is allocated lazily on first write.
func (c *SchemaCore) SetFieldRef(name, field, refUUID string) error {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	s, err := c.getLocked(name)
	if err != nil {
		return err
	}
	fd, ok := s.Fields[field]
	if !ok {
		return folderrors.New(folderrors.KindFieldNotFound, "field not found", "name", name, "field", field)
	}
	fd.RefAtomUUID = refUUID
	return c.putLocked(s)
}

// Get loads a schema by name, failing with SchemaNotFound if absent.
func (c *SchemaCore) Get(name string) (*Schema, error) {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()
	return c.getLocked(name)
}

// ListByState returns every schema currently in state st.
func (c *SchemaCore) ListByState(st State) ([]*Schema, error) {
	names, err := c.tree().ListKeys()
	if err != nil {
		return nil, err
	}
	var out []*Schema
	for _, name := range names {
		s, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		if s.State == st {
			out = append(out, s)
		}
	}
	return out, nil
}

// CanQuery reports whether name currently accepts reads.
func (c *SchemaCore) CanQuery(name string) (bool, error) {
	s, err := c.Get(name)
	if err != nil {
		return false, err
	}
	return s.CanQuery(), nil
}

// CanMutate reports whether name currently accepts writes.
func (c *SchemaCore) CanMutate(name string) (bool, error) {
	s, err := c.Get(name)
	if err != nil {
		return false, err
	}
	return s.CanMutate(), nil
}

// LoadReport summarizes a bulk LoadAll pass.
type LoadReport struct {
	Loaded []string
	Failed map[string]error
}

// LoadAll loads every schema in docs, continuing past individual failures
// and reporting them rather than aborting the batch.
func (c *SchemaCore) LoadAll(docs []*Schema) *LoadReport {
	report := &LoadReport{Failed: make(map[string]error)}
	for _, s := range docs {
		if err := c.Load(s); err != nil {
			report.Failed[s.Name] = err
			continue
		}
		report.Loaded = append(report.Loaded, s.Name)
	}
	return report
}
