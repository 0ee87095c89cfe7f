package snbt

import (
	"fmt"
	"strings"

	"paratranz-sync/internal/nested"
)

const indentStep = 4

// Render writes tree as indented SNBT. Every entry and list item sits on its
// own line, one indent step deeper than its parent; there are no separators.
// Keys and scalars are always double-quoted. Scalars are written verbatim,
// so string leaves must already be passed through Escape.
func Render(tree Tree) string {
	var sb strings.Builder
	render(&sb, tree, 0)
	return sb.String()
}

func render(sb *strings.Builder, tree Tree, depth int) {
	pad := strings.Repeat(" ", depth)
	child := pad + strings.Repeat(" ", indentStep)

	switch t := tree.(type) {
	case Compound:
		sb.WriteString("{")
		for _, e := range t {
			sb.WriteString("\n")
			sb.WriteString(child)
			sb.WriteString(quoteKey(e.Key))
			sb.WriteString(":")
			render(sb, e.Value, depth+indentStep)
		}
		sb.WriteString("\n")
		sb.WriteString(pad)
		sb.WriteString("}")
	case Sequence:
		sb.WriteString("[")
		for _, item := range t {
			sb.WriteString("\n")
			sb.WriteString(child)
			render(sb, item, depth+indentStep)
		}
		sb.WriteString("\n")
		sb.WriteString(pad)
		sb.WriteString("]")
	case Scalar:
		sb.WriteString(`"`)
		sb.WriteString(string(t))
		sb.WriteString(`"`)
	default:
		panic(fmt.Sprintf("snbt: unknown tree node %T", tree))
	}
}

func quoteKey(k string) string {
	k = strings.ReplaceAll(k, `\`, `\\`)
	return `"` + strings.ReplaceAll(k, `"`, `\"`) + `"`
}

// Escape returns a copy of v with every double quote in every string leaf
// replaced by \". It is not idempotent: call it once per value.
func Escape(v nested.Value) nested.Value {
	switch t := v.(type) {
	case *nested.Map:
		if t == nil {
			return t
		}
		out := nested.NewMap()
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			out.Set(k, Escape(child))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Escape(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Escape(item)
		}
		return out
	case string:
		return strings.ReplaceAll(t, `"`, `\"`)
	default:
		return v
	}
}

// Marshal escapes, builds and renders v in one step.
func Marshal(v nested.Value) (string, error) {
	tree, err := Build(Escape(v))
	if err != nil {
		return "", err
	}
	return Render(tree), nil
}
