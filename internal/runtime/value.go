// Package runtime holds the mutable execution state of a Veldt run: the
// object heap, the frame stack, and the simulation-memory side map. All
// access is single-threaded; the interpreter is the only writer.
package runtime

import (
	"fmt"
	"strconv"
)

// Kind discriminates the Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindRef:
		return "ref"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a primitive literal or an object reference. The zero Value is
// null.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Ref   ObjectRef
}

// Null returns the null value.
func Null() Value { return Value{} }

// IntVal wraps an integer.
func IntVal(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatVal wraps a float.
func FloatVal(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// BoolVal wraps a boolean.
func BoolVal(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// StrVal wraps a string.
func StrVal(v string) Value { return Value{Kind: KindString, Str: v} }

// RefVal wraps an object reference.
func RefVal(ref ObjectRef) Value { return Value{Kind: KindRef, Ref: ref} }

// IsNull reports whether the value is the null reference.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value the way the print statement does.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	case KindRef:
		return string(v.Ref)
	}
	return "?"
}

// Lexical renders the value in the lexical form used as a triple object:
// strings quoted, numbers bare, booleans bare, refs by printed identity.
func (v Value) Lexical() string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	return v.String()
}

// Equal compares two values; refs compare by identity.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	case KindRef:
		return v.Ref == o.Ref
	}
	return false
}
