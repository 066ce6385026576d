package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ValueKind tags a decoded argument value.
type ValueKind uint8

const (
	ScalarKind ValueKind = iota
	CompositeKind
)

// Fields holds the members of a composite value in declaration order.
type Fields = orderedmap.OrderedMap[string, Value]

// Value is a decoded argument: either a scalar leaf or a composite of named fields.
type Value struct {
	Kind   ValueKind
	Scalar interface{}
	Fields *Fields
}

// NewFields returns an empty ordered field set.
func NewFields() *Fields {
	return orderedmap.New[string, Value]()
}

// ScalarValue wraps a normalized leaf value.
func ScalarValue(v interface{}) Value {
	return Value{Kind: ScalarKind, Scalar: v}
}

// CompositeValue wraps an ordered field set.
func CompositeValue(fields *Fields) Value {
	if fields == nil {
		fields = NewFields()
	}
	return Value{Kind: CompositeKind, Fields: fields}
}

// IsComposite reports whether the value has nested fields.
func (v Value) IsComposite() bool {
	return v.Kind == CompositeKind
}
