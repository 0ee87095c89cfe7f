// Package langdoc holds ordered localization documents: the flat
// key -> text JSON objects used by Minecraft language files.
//
// Key order is significant. A source document defines the order of its
// translated counterpart, so decoding keeps file order and encoding writes
// keys back in that order.
package langdoc

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is an ordered string -> string mapping.
type Document struct {
	entries *orderedmap.OrderedMap[string, string]
}

// New returns an empty document.
func New() *Document {
	return &Document{entries: orderedmap.New[string, string]()}
}

// Len returns the number of entries.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return d.entries.Len()
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, d.entries.Len())
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	return d.entries.Get(key)
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Set stores value under key. An existing key keeps its position.
func (d *Document) Set(key, value string) {
	d.entries.Set(key, value)
}

// Sorted returns a copy with keys in lexicographic order.
func (d *Document) Sorted() *Document {
	keys := d.Keys()
	sort.Strings(keys)
	out := New()
	for _, k := range keys {
		v, _ := d.Get(k)
		out.Set(k, v)
	}
	return out
}

// Merge copies every entry of other into d. Later values win; new keys are
// appended in other's order.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	for pair := other.entries.Oldest(); pair != nil; pair = pair.Next() {
		d.Set(pair.Key, pair.Value)
	}
}
