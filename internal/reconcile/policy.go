package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"paratranz-sync/internal/paratranz"
)

// ParaTranz review stages.
const (
	StageRejected     = -1
	StageUntranslated = 0
	StageTranslated   = 1
	StageReviewed     = 2
	StageChecked      = 3
	StageHidden       = 5
	StageLocked       = 9
)

// DefaultFallbackStages are the stages whose entries keep the original text.
var DefaultFallbackStages = []int{StageUntranslated, StageRejected, StageReviewed}

// Policy decides whether an entry contributes its translation or its
// original text.
type Policy struct {
	fallback map[int]struct{}
}

// NewPolicy builds a Policy that falls back to the original text for the
// given stages.
func NewPolicy(fallbackStages ...int) Policy {
	p := Policy{fallback: make(map[int]struct{}, len(fallbackStages))}
	for _, s := range fallbackStages {
		p.fallback[s] = struct{}{}
	}
	return p
}

// DefaultPolicy returns NewPolicy(DefaultFallbackStages...).
func DefaultPolicy() Policy {
	return NewPolicy(DefaultFallbackStages...)
}

// ParsePolicy reads a comma-separated stage list such as "0,-1,2".
func ParsePolicy(s string) (Policy, error) {
	var stages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Policy{}, fmt.Errorf("parse stage %q: %w", part, err)
		}
		stages = append(stages, n)
	}
	return NewPolicy(stages...), nil
}

// Select returns the value an entry resolves to, before normalization.
func (p Policy) Select(e paratranz.TranslationEntry) string {
	if _, ok := p.fallback[e.Stage]; ok || e.Translation == "" {
		return e.Original
	}
	return e.Translation
}

// Stages returns the fallback stages in ascending order.
func (p Policy) Stages() []int {
	out := make([]int, 0, len(p.fallback))
	for s := range p.fallback {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
