// Package scalar interprets plain YAML scalar text into Go values,
// following the YAML 1.1/1.2 core schema conventions spelled out in
// spec.md §4.3: nullish detection, YAML-1.1-style and strict booleans,
// generic-width integer parsing across bases, YAML-1.2 floats (with an
// optional robotics-flavored angle/expression evaluator), and !!binary.
package scalar

import "strings"

// IsNullish reports whether a plain scalar's text denotes YAML null: the
// empty string, "~", or "null"/"Null"/"NULL". Quoted scalars are never
// nullish regardless of their text — "~" in single quotes is the string
// "~", not null.
func IsNullish(value string, plain bool) bool {
	if !plain {
		return false
	}
	switch value {
	case "", "~", "null", "Null", "NULL":
		return true
	default:
		return false
	}
}

// IsNullishForOption is the slightly looser check used when deciding
// whether a value should become None for an Option[T] field: it also
// accepts an all-whitespace plain scalar, since such a field was clearly
// never meant to carry a real value.
func IsNullishForOption(value string, plain bool) bool {
	if IsNullish(value, plain) {
		return true
	}
	return plain && strings.TrimSpace(value) == ""
}
