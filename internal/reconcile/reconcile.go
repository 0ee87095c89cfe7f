// Package reconcile turns ParaTranz entries into a target-language document
// whose keys match the local source-language document.
//
// ParaTranz stores keys in a 255-character column, so long keys come back
// truncated. Reconcile restores them by prefix match against the source keys
// and fills every source key the entries do not cover with its original text.
package reconcile

import (
	"sort"
	"strings"

	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/paratranz"
	"paratranz-sync/internal/textutil"

	"github.com/rs/zerolog/log"
)

const (
	imageMarker = "image"
	previewLen  = 50
)

// Resolve maps entries to their resolved, normalized values in entry order.
//
// Regular units have literal `\\` and `\n` sequences unescaped, and ASCII
// spaces turned into non-breaking spaces when the value contains CJK text.
// Quest-text units keep the raw value and only get the space substitution
// when the value has CJK text and does not mention "image".
func Resolve(entries []paratranz.TranslationEntry, p Policy, questText bool) *langdoc.Document {
	doc := langdoc.New()
	for _, e := range entries {
		doc.Set(e.Key, normalize(p.Select(e), questText))
	}
	return doc
}

func normalize(v string, questText bool) string {
	if questText {
		if strings.Contains(v, imageMarker) || !textutil.ContainsCJK(v) {
			return v
		}
		return textutil.NonBreakingSpaces(v)
	}

	v = textutil.UnescapeLiterals(v)
	if textutil.ContainsCJK(v) {
		v = textutil.NonBreakingSpaces(v)
	}
	return v
}

// Report summarizes one reconciliation.
type Report struct {
	// Matched counts resolved keys found verbatim in the index.
	Matched int
	// Repaired maps truncated keys to the full index keys they were bound to.
	Repaired map[string]string
	// Dropped lists resolved keys that could not be placed.
	Dropped []string
	// Fallback counts index keys filled with their original text.
	Fallback int
	// Unordered is set when no index was available.
	Unordered bool
}

// Reconcile builds the final document for one unit.
//
// With an index, the result has exactly the index keys in index order. Each
// slot takes the resolved value under the same key, or under a 255-character
// key that prefixes it, or else the index's own text. When several index keys
// share a truncated prefix the lexicographically smallest one is chosen.
// Resolved keys that cannot be placed are dropped with a warning.
//
// Without an index, the resolved document is returned sorted by key.
func Reconcile(resolved, index *langdoc.Document) (*langdoc.Document, Report) {
	report := Report{Repaired: make(map[string]string)}

	if index == nil {
		report.Unordered = true
		return resolved.Sorted(), report
	}

	matched := make(map[string]string, resolved.Len())
	var unmatched []string
	for _, k := range resolved.Keys() {
		v, _ := resolved.Get(k)
		if index.Has(k) {
			matched[k] = v
			report.Matched++
			continue
		}
		unmatched = append(unmatched, k)
	}

	if len(unmatched) > 0 {
		sorted := append([]string(nil), index.Keys()...)
		sort.Strings(sorted)

		for _, k := range unmatched {
			full, ok := repairKey(sorted, k)
			if !ok {
				log.Warn().
					Str("key", textutil.Truncate(k, previewLen)).
					Int("length", len([]rune(k))).
					Msg("Key has no match in source document, dropping translation")
				report.Dropped = append(report.Dropped, k)
				continue
			}
			v, _ := resolved.Get(k)
			matched[full] = v
			report.Repaired[k] = full
		}
	}

	out := langdoc.New()
	for _, k := range index.Keys() {
		if v, ok := matched[k]; ok {
			out.Set(k, v)
			continue
		}
		orig, _ := index.Get(k)
		out.Set(k, orig)
		report.Fallback++
	}

	return out, report
}

// repairKey finds the smallest key in sorted that has k as a prefix. Only
// keys of exactly the truncation length qualify.
func repairKey(sorted []string, k string) (string, bool) {
	if len([]rune(k)) != paratranz.TruncatedKeyLength {
		return "", false
	}
	i := sort.SearchStrings(sorted, k)
	if i < len(sorted) && strings.HasPrefix(sorted[i], k) {
		return sorted[i], true
	}
	return "", false
}
