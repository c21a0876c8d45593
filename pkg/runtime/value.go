package runtime

import (
	"fmt"
	"strings"
)

// Value is a dynamically typed runtime value: int64, float64, string, bool,
// *Array, or nil (the null value).
type Value = any

// Array is the runtime array object. It is held by pointer so ARRAY_PUSH and
// ARRAY_SET mutate the one shared instance.
type Array struct {
	Elems []Value
}

// NewArray creates an empty array value.
func NewArray() *Array {
	return &Array{}
}

// Truthy reports the boolean interpretation of a value: false, zero, the
// empty string, the empty array, and null are falsy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case *Array:
		return v != nil && len(v.Elems) > 0
	}
	return true
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case *Array:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

// asFloat widens a numeric value to float64.
func asFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// bothInt reports whether both values are integers.
func bothInt(a, b Value) (int64, int64, bool) {
	x, okA := a.(int64)
	y, okB := b.(int64)
	return x, y, okA && okB
}

// Format renders a value the way PRINT displays it.
func Format(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", v)
	case *Array:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
