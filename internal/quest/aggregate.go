// Package quest restructures FTB Quests language keys before SNBT rendering.
package quest

import (
	"strings"

	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/nested"

	"github.com/rs/zerolog/log"
)

const (
	descMarker = "desc"
	lineMarker = ".quest_desc"
)

// Merge combines quest-text documents in the given order. A key present in
// several documents takes the value of the last one.
func Merge(docs ...*langdoc.Document) *langdoc.Document {
	out := langdoc.New()
	for _, d := range docs {
		out.Merge(d)
	}
	return out
}

// Aggregate collapses per-line description keys into arrays.
//
// Every key containing "desc" names a quest by its second dot-separated
// segment. For each quest, the values of all keys containing
// ".<id>.quest_desc" are collected in document order and stored under
// "quest.<id>.quest_desc". The scalar "desc" keys are dropped; the arrays are
// appended after the remaining keys in first-seen order.
func Aggregate(doc *langdoc.Document) *nested.Map {
	seen := make(map[string]struct{})
	removed := make(map[string]struct{})
	descs := nested.NewMap()

	for _, key := range doc.Keys() {
		if !strings.Contains(key, descMarker) {
			continue
		}
		id, ok := questID(key)
		if !ok {
			log.Warn().Str("key", key).Msg("Description key has no quest identifier, keeping as-is")
			continue
		}
		removed[key] = struct{}{}

		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		descs.Set(DescKey(id), collectLines(doc, id))
	}

	out := nested.NewMap()
	for _, key := range doc.Keys() {
		if _, drop := removed[key]; drop {
			continue
		}
		v, _ := doc.Get(key)
		out.Set(key, v)
	}
	for _, key := range descs.Keys() {
		v, _ := descs.Get(key)
		out.Set(key, v)
	}

	log.Debug().
		Int("quests", descs.Len()).
		Int("removed_keys", len(removed)).
		Msg("Aggregated quest descriptions")
	return out
}

// DescKey returns the synthesized array key for a quest identifier.
func DescKey(id string) string {
	return "quest." + id + lineMarker
}

func collectLines(doc *langdoc.Document, id string) []any {
	// The leading dot anchors the identifier: quest "1" must not collect the
	// lines of quest "11". Do not relax this to a plain substring match.
	needle := "." + id + lineMarker
	lines := []any{}
	for _, k := range doc.Keys() {
		if strings.Contains(k, needle) {
			v, _ := doc.Get(k)
			lines = append(lines, v)
		}
	}
	return lines
}

// questID returns the segment between the first and second dots.
func questID(key string) (string, bool) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
