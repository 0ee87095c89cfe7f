// Package interpolation finds format placeholders in Minecraft language values.
package interpolation

import (
	"cmp"
	"regexp"
	"slices"
)

// patterns to detect placeholders in language values.
var patterns = []*regexp.Regexp{
	// %s, %1$s, %.2f
	regexp.MustCompile(`%(?:[0-9]+\$)?[-#+0,(]*[0-9]*(?:\.[0-9]+)?[sdfxXbBcCeEgGhHo]`),
	// {0}, {1}
	regexp.MustCompile(`\{[0-9]+\}`),
	// escaped percent literal
	regexp.MustCompile(`%%`),
}

// varMatch stores a detected placeholder position.
type varMatch struct {
	start, end int
	value      string
}

// Find returns the placeholders of text in order of appearance. Where matches
// overlap, the longest one starting first wins.
func Find(text string) []string {
	var all []varMatch
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, varMatch{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	slices.SortStableFunc(all, compareVarMatches)

	var out []string
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			out = append(out, m.value)
			lastEnd = m.end
		}
	}
	return out
}

// Mismatch reports whether translated carries a different set of
// placeholders than original, counting repeats and ignoring order.
func Mismatch(original, translated string) bool {
	a, b := Find(original), Find(translated)
	if len(a) != len(b) {
		return true
	}
	slices.Sort(a)
	slices.Sort(b)
	return !slices.Equal(a, b)
}

// compareVarMatches orders by start position, then by length (descending) for
// overlaps.
func compareVarMatches(a, b varMatch) int {
	if c := cmp.Compare(a.start, b.start); c != 0 {
		return c
	}
	return cmp.Compare(b.end-b.start, a.end-a.start)
}
