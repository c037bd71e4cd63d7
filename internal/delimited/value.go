package delimited

import (
	"encoding/json"
	"strings"
)

// ValueKind tags the shape of a Value.
type ValueKind int

const (
	KindScalar ValueKind = iota
	KindList
)

// Value is a field value: either a single string or a list of strings.
// The kind is fixed when the record is built.
type Value struct {
	kind   ValueKind
	scalar string
	list   []string
}

// Scalar returns a scalar Value.
func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

// List returns a list Value. A nil slice is stored as an empty list.
func List(items []string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: KindList, list: items}
}

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.kind == KindList }

// String returns the scalar text, or the list items joined with ", ".
func (v Value) String() string {
	if v.kind == KindList {
		return strings.Join(v.list, ", ")
	}
	return v.scalar
}

// Items returns a copy of the list items. A scalar yields a single-item list,
// or an empty list when the scalar is empty.
func (v Value) Items() []string {
	if v.kind == KindList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	if v.scalar == "" {
		return []string{}
	}
	return []string{v.scalar}
}

// MarshalJSON encodes scalars as JSON strings and lists as JSON arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindList {
		return json.Marshal(v.list)
	}
	return json.Marshal(v.scalar)
}

// splitList turns a raw (trimmed, possibly quoted) token into list items.
// Quoted tokens split on comma, unquoted ones on semicolon.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	sep := ";"
	if isQuoted(raw) {
		raw = raw[1 : len(raw)-1]
		sep = ","
	}

	items := []string{}
	for _, piece := range strings.Split(raw, sep) {
		if piece = strings.TrimSpace(piece); piece != "" {
			items = append(items, piece)
		}
	}
	return items
}
