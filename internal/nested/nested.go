// Package nested defines the plain document value exchanged between quest
// aggregation and SNBT rendering.
//
// A Value is one of:
//   - *Map: ordered string -> Value mapping
//   - map[string]any: unordered mapping, accepted from generic decoders
//   - []any: ordered sequence of Value
//   - string
//   - an integer kind (int, int8..int64, uint..uint64)
//
// It mirrors decoded JSON. Consumers such as snbt.Build reject any other
// kind.
package nested

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Value is a nested document value. See the package documentation for the
// permitted shapes.
type Value = any

// Map is an ordered string -> Value mapping.
type Map struct {
	entries *orderedmap.OrderedMap[string, Value]
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{entries: orderedmap.New[string, Value]()}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.entries.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	return m.entries.Get(key)
}

// Set stores v under key. An existing key keeps its position.
func (m *Map) Set(key string, v Value) {
	m.entries.Set(key, v)
}

// Clone returns a structural deep copy of v. Maps and sequences are copied;
// scalars are returned as-is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *Map:
		if t == nil {
			return (*Map)(nil)
		}
		out := NewMap()
		for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Clone(pair.Value))
		}
		return out
	case []any:
		if t == nil {
			return []any(nil)
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Clone(item)
		}
		return out
	default:
		return v
	}
}
