// Package rangefilter implements the six filter variants exposed by a
// Range field: Key, KeyPrefix, KeyRange, Keys, Value, and KeyPattern. All
// operations are pure reads over an in-memory snapshot of a string-keyed
// ordered map.
package rangefilter
