// Package anchor provides the Go-side representation of YAML's anchor/alias
// sharing: Anchor[T] holds a strong, shared reference that every alias to
// the same anchor observes updates through, and WeakAnchor[T] holds a
// non-owning reference that degrades to its zero value once nothing else
// keeps the target alive.
//
// The decoder does not produce Anchor or WeakAnchor values from YAML
// anchors and aliases. They are built with NewAnchor, Alias and
// NewWeakAnchor, and the encoder writes the first occurrence of a shared
// value as an anchored node and every later one as an alias.
package anchor

import "weak"

// Anchor is a strong shared reference to a T. An Anchor and the copies
// made from it with Alias point at the same underlying T; mutating
// through one is visible through the other.
type Anchor[T any] struct {
	ptr *T
}

// NewAnchor wraps v as the canonical definition of a new anchor.
func NewAnchor[T any](v T) Anchor[T] {
	return Anchor[T]{ptr: &v}
}

// Alias returns a second Anchor[T] sharing a's underlying value.
func (a Anchor[T]) Alias() Anchor[T] {
	return a
}

// Get returns a pointer to the shared value.
func (a Anchor[T]) Get() *T {
	return a.ptr
}

// Valid reports whether the Anchor holds a value; the zero Anchor[T] (as
// produced by decoding a mapping field that was never visited) is
// invalid.
func (a Anchor[T]) Valid() bool {
	return a.ptr != nil
}

// WeakAnchor is a non-owning reference to an anchor's value. It is used
// for reference cycles that would otherwise keep their whole subtree
// alive forever; once the strong Anchor[T] that defined the value is no
// longer reachable, Get returns the zero value and ok is false.
//
// Encoding a dangling WeakAnchor emits YAML null, mirroring how a
// strong Anchor always round-trips to a real anchored node.
type WeakAnchor[T any] struct {
	ptr weak.Pointer[T]
}

// NewWeakAnchor derives a WeakAnchor that refers to a's value without
// keeping it alive.
func NewWeakAnchor[T any](a Anchor[T]) WeakAnchor[T] {
	return WeakAnchor[T]{ptr: weak.Make(a.ptr)}
}

// Get resolves the weak reference. ok is false once the referent has been
// collected; callers must not retain the returned pointer past its use,
// since doing so does not itself keep the value alive.
func (w WeakAnchor[T]) Get() (v *T, ok bool) {
	v = w.ptr.Value()
	return v, v != nil
}
