package langdoc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const indent = "    "

// Decode parses a flat JSON object, keeping key order. Every value must be a
// string. A duplicate key keeps its first position and its last value.
func Decode(data []byte) (*Document, error) {
	entries := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, entries); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &Document{entries: entries}, nil
}

// Encode renders the document as indented JSON: four spaces per level, ","
// between items and ":" between key and value with no padding. Non-ASCII
// text is written as-is. There is no trailing newline.
func Encode(d *Document) []byte {
	if d.Len() == 0 {
		return []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range d.Keys() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
		sb.WriteString(indent)
		writeString(&sb, k)
		sb.WriteString(":")
		v, _ := d.Get(k)
		writeString(&sb, v)
	}
	sb.WriteString("\n}")
	return []byte(sb.String())
}

// writeString quotes s, escaping only what JSON requires.
func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u00`)
				hex := strconv.FormatInt(int64(r), 16)
				if len(hex) < 2 {
					sb.WriteByte('0')
				}
				sb.WriteString(hex)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}
