package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// Request is the envelope published on topic for a correlation-id
// request/response exchange — used to decouple admin flows such as schema
// load/approval from their callers.
type Request struct {
	CorrelationID string
	Topic         string
	Payload       any
}

// Response answers a Request by correlation id.
type Response struct {
	CorrelationID string
	Result        any
	Err           error
}

type requestTable struct {
	mu      sync.Mutex
	waiters map[string]chan Response
}

func newRequestTable() *requestTable {
	return &requestTable{waiters: make(map[string]chan Response)}
}

func (t *requestTable) register(id string) chan Response {
	ch := make(chan Response, 1)
	t.mu.Lock()
	t.waiters[id] = ch
	t.mu.Unlock()
	return ch
}

func (t *requestTable) forget(id string) {
	t.mu.Lock()
	delete(t.waiters, id)
	t.mu.Unlock()
}

func (t *requestTable) complete(resp Response) bool {
	t.mu.Lock()
	ch, ok := t.waiters[resp.CorrelationID]
	if ok {
		delete(t.waiters, resp.CorrelationID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	return true
}

// Ask publishes a Request{CorrelationID, Topic: topic, Payload: payload} on
// topic and blocks until a matching Respond call arrives or timeout
// elapses, whichever comes first. Subscribers on topic are expected to call
// Respond with the same correlation id once they have a result.
func (b *Bus) Ask(topic string, payload any, timeout time.Duration) (any, error) {
	id := uuid.NewString()
	ch := b.requests.register(id)

	b.Publish(topic, Request{CorrelationID: id, Topic: topic, Payload: payload})

	select {
	case resp := <-ch:
		return resp.Result, resp.Err
	case <-time.After(timeout):
		b.requests.forget(id)
		return nil, folderrors.New(folderrors.KindRequestTimeout, "request timed out",
			"topic", topic, "correlation_id", id)
	}
}

// Respond answers a pending Ask call by correlation id. Returns false if no
// request with that id is (still) pending — e.g. it already timed out.
func (b *Bus) Respond(correlationID string, result any, err error) bool {
	return b.requests.complete(Response{CorrelationID: correlationID, Result: result, Err: err})
}
