// Package snbt renders nested document values as the fully-quoted SNBT
// dialect read by FTB Quests language files.
//
// Values go through three steps: Escape (quote escaping of string leaves),
// Build (conversion to a typed Tree) and Render (indented text).
package snbt

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"paratranz-sync/internal/nested"
)

// ErrUnsupportedValueKind matches any *UnsupportedValueKindError.
var ErrUnsupportedValueKind = errors.New("unsupported value kind")

// UnsupportedValueKindError reports a scalar outside {string, integer}.
type UnsupportedValueKindError struct {
	// Path locates the value, e.g. `quest.1.quest_desc[2]`.
	Path string
	// Value is the offending value.
	Value any
}

func (e *UnsupportedValueKindError) Error() string {
	return fmt.Sprintf("unsupported value kind %T at %q", e.Value, e.Path)
}

func (e *UnsupportedValueKindError) Is(target error) bool {
	return target == ErrUnsupportedValueKind
}

// Tree is a typed SNBT node: Compound, Sequence or Scalar.
type Tree interface {
	isTree()
}

// Entry is one key/value pair of a Compound.
type Entry struct {
	Key   string
	Value Tree
}

// Compound is an ordered mapping.
type Compound []Entry

// Sequence is an ordered list.
type Sequence []Tree

// Scalar is a leaf. Integers are stored in decimal form.
type Scalar string

func (Compound) isTree() {}
func (Sequence) isTree() {}
func (Scalar) isTree()   {}

// Build converts v into a Tree. Mapping and sequence order is kept.
func Build(v nested.Value) (Tree, error) {
	return build(v, "")
}

func build(v nested.Value, path string) (Tree, error) {
	switch t := v.(type) {
	case *nested.Map:
		c := make(Compound, 0, t.Len())
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			node, err := build(child, joinKey(path, k))
			if err != nil {
				return nil, err
			}
			c = append(c, Entry{Key: k, Value: node})
		}
		return c, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c := make(Compound, 0, len(t))
		for _, k := range keys {
			node, err := build(t[k], joinKey(path, k))
			if err != nil {
				return nil, err
			}
			c = append(c, Entry{Key: k, Value: node})
		}
		return c, nil
	case []any:
		s := make(Sequence, 0, len(t))
		for i, item := range t {
			node, err := build(item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			s = append(s, node)
		}
		return s, nil
	case string:
		return Scalar(t), nil
	case int:
		return Scalar(strconv.FormatInt(int64(t), 10)), nil
	case int8:
		return Scalar(strconv.FormatInt(int64(t), 10)), nil
	case int16:
		return Scalar(strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return Scalar(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return Scalar(strconv.FormatInt(t, 10)), nil
	case uint:
		return Scalar(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return Scalar(strconv.FormatUint(uint64(t), 10)), nil
	case uint16:
		return Scalar(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return Scalar(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return Scalar(strconv.FormatUint(t, 10)), nil
	default:
		return nil, &UnsupportedValueKindError{Path: path, Value: v}
	}
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
