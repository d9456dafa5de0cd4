package rangefilter

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is the string-keyed ordered map a Range field's filter engine
// operates over: key -> atom id.
type Map struct {
	om *orderedmap.OrderedMap[string, string]
}

// NewMap builds an empty ordered map.
func NewMap() *Map {
	return &Map{om: orderedmap.New[string, string]()}
}

// NewMapFrom builds an ordered map from src, preserving src's iteration
// order when src is itself a Go map is undefined (Go maps have no stable
// order) — callers that need deterministic construction order should use
// Set in sequence instead.
func NewMapFrom(src map[string]string) *Map {
	m := NewMap()
	for k, v := range src {
		m.Set(k, v)
	}
	return m
}

// Set upserts key -> value.
func (m *Map) Set(key, value string) {
	m.om.Set(key, value)
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (string, bool) {
	return m.om.Get(key)
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key string) bool {
	_, ok := m.om.Delete(key)
	return ok
}

// Len reports the number of entries.
func (m *Map) Len() int {
	return m.om.Len()
}

// ToMap returns a plain Go map snapshot — used for read_field responses
// where insertion order is not part of the contract.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Keys returns every key in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
