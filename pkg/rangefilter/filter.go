package rangefilter

import (
	"encoding/json"
	"strings"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// Variant discriminates the six filter shapes.
type Variant string

const (
	VariantKey       Variant = "key"
	VariantKeyPrefix Variant = "key_prefix"
	VariantKeyRange  Variant = "key_range"
	VariantKeys      Variant = "keys"
	VariantValue     Variant = "value"
	VariantKeyPattern Variant = "key_pattern"
)

// Filter is the externally-tagged union over the six range-filter
// variants: {"type": "key"|"key_prefix"|..., ...variant fields}.
type Filter struct {
	Type Variant

	Key    string   `json:"key,omitempty"`
	Prefix string   `json:"prefix,omitempty"`
	Start  string   `json:"start,omitempty"`
	End    string   `json:"end,omitempty"`
	Keys   []string `json:"keys,omitempty"`
	Value  string   `json:"value,omitempty"`
	Pattern string  `json:"pattern,omitempty"`
}

// Result is the filter response: the matched key/value pairs plus a count
// that always equals len(Matches). Round-trippable via JSON.
type Result struct {
	Matches    map[string]string `json:"matches"`
	TotalCount int               `json:"total_count"`
}

func newResult() Result {
	return Result{Matches: map[string]string{}, TotalCount: 0}
}

func finish(r Result) Result {
	r.TotalCount = len(r.Matches)
	return r
}

// Apply evaluates f against m and returns the matched subset.
func Apply(m *Map, f Filter) Result {
	switch f.Type {
	case VariantKey:
		return applyKey(m, f.Key)
	case VariantKeyPrefix:
		return applyKeyPrefix(m, f.Prefix)
	case VariantKeyRange:
		return applyKeyRange(m, f.Start, f.End)
	case VariantKeys:
		return applyKeys(m, f.Keys)
	case VariantValue:
		return applyValue(m, f.Value)
	case VariantKeyPattern:
		return applyKeyPattern(m, f.Pattern)
	default:
		return finish(newResult())
	}
}

func applyKey(m *Map, key string) Result {
	r := newResult()
	if v, ok := m.Get(key); ok {
		r.Matches[key] = v
	}
	return finish(r)
}

// Empty prefix matches all keys.
func applyKeyPrefix(m *Map, prefix string) Result {
	r := newResult()
	for _, k := range m.Keys() {
		if strings.HasPrefix(k, prefix) {
			v, _ := m.Get(k)
			r.Matches[k] = v
		}
	}
	return finish(r)
}

// Lexicographic half-open [start, end). start == end or start > end yields
// an empty result.
func applyKeyRange(m *Map, start, end string) Result {
	r := newResult()
	if start >= end {
		return finish(r)
	}
	for _, k := range m.Keys() {
		if k >= start && k < end {
			v, _ := m.Get(k)
			r.Matches[k] = v
		}
	}
	return finish(r)
}

// Empty list yields an empty result.
func applyKeys(m *Map, keys []string) Result {
	r := newResult()
	for _, k := range keys {
		if v, ok := m.Get(k); ok {
			r.Matches[k] = v
		}
	}
	return finish(r)
}

func applyValue(m *Map, value string) Result {
	r := newResult()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if v == value {
			r.Matches[k] = v
		}
	}
	return finish(r)
}

// Empty pattern yields an empty result.
func applyKeyPattern(m *Map, pattern string) Result {
	r := newResult()
	if pattern == "" {
		return finish(r)
	}
	for _, k := range m.Keys() {
		if globMatch(pattern, k) {
			v, _ := m.Get(k)
			r.Matches[k] = v
		}
	}
	return finish(r)
}

// globMatch implements the ?/* glob dialect: ? matches exactly one
// character, * matches zero or more characters, all other runes match
// literally.
func globMatch(pattern, s string) bool {
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(p, s []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if globMatchRunes(p[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return globMatchRunes(p[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return globMatchRunes(p[1:], s[1:])
	}
}

// Keys returns every key in m in insertion order.
func Keys(m *Map) []string {
	return m.Keys()
}

// KeysInRange returns the keys in m within the lexicographic half-open
// range [start, end).
func KeysInRange(m *Map, start, end string) []string {
	var out []string
	if start >= end {
		return out
	}
	for _, k := range m.Keys() {
		if k >= start && k < end {
			out = append(out, k)
		}
	}
	return out
}

// Count returns the number of entries in m.
func Count(m *Map) int {
	return m.Len()
}

type taggedEnvelope struct {
	Type Variant `json:"type"`
}

// MarshalJSON flattens the filter's fields alongside its "type" discriminant.
func (f Filter) MarshalJSON() ([]byte, error) {
	type alias Filter
	body, err := json.Marshal(alias(f))
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindSerializationError, "marshal filter", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, folderrors.Wrap(folderrors.KindSerializationError, "marshal filter", err)
	}
	tagBytes, _ := json.Marshal(f.Type)
	m["type"] = tagBytes
	return json.Marshal(m)
}

// UnmarshalJSON dispatches on the "type" tag.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var env taggedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return folderrors.Wrap(folderrors.KindDeserializationError, "decode filter envelope", err)
	}
	type alias Filter
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return folderrors.Wrap(folderrors.KindDeserializationError, "decode filter", err)
	}
	a.Type = env.Type
	*f = Filter(a)
	return nil
}
