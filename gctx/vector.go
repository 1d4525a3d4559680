package gctx

import (
	"strconv"
)

// Kind is the element kind of a Vector.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindText
	KindFloat32
	KindFloat64
	KindInt32
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindInt32:
		return "int32"
	}
	return "invalid"
}

// Vector is an immutable sequence of text, float32, float64 or int32 values.
// Exactly one of the backing slices is in use, selected by Kind.
type Vector struct {
	kind Kind
	text []string
	f32  []float32
	f64  []float64
	i32  []int32
}

// Classify wraps a raw typed slice read from a container. It reports false
// for any element type other than the four supported kinds.
func Classify(raw any) (Vector, bool) {
	switch v := raw.(type) {
	case []string:
		return Text(v), true
	case []float32:
		return Float32(v), true
	case []float64:
		return Float64(v), true
	case []int32:
		return Int32(v), true
	}
	return Vector{}, false
}

// Text returns a text Vector backed by v.
func Text(v []string) Vector { return Vector{kind: KindText, text: v} }

// Float32 returns a float32 Vector backed by v.
func Float32(v []float32) Vector { return Vector{kind: KindFloat32, f32: v} }

// Float64 returns a float64 Vector backed by v.
func Float64(v []float64) Vector { return Vector{kind: KindFloat64, f64: v} }

// Int32 returns an int32 Vector backed by v.
func Int32(v []int32) Vector { return Vector{kind: KindInt32, i32: v} }

// Kind returns the element kind.
func (v Vector) Kind() Kind { return v.kind }

// Len returns the number of elements.
func (v Vector) Len() int {
	switch v.kind {
	case KindText:
		return len(v.text)
	case KindFloat32:
		return len(v.f32)
	case KindFloat64:
		return len(v.f64)
	case KindInt32:
		return len(v.i32)
	}
	return 0
}

// Texts returns the elements of a text Vector, or nil for other kinds.
// The returned slice must not be modified.
func (v Vector) Texts() []string { return v.text }

// Float32s returns the elements of a float32 Vector, or nil.
func (v Vector) Float32s() []float32 { return v.f32 }

// Float64s returns the elements of a float64 Vector, or nil.
func (v Vector) Float64s() []float64 { return v.f64 }

// Int32s returns the elements of an int32 Vector, or nil.
func (v Vector) Int32s() []int32 { return v.i32 }

// String formats element i as text regardless of kind.
func (v Vector) String(i int) string {
	switch v.kind {
	case KindText:
		return v.text[i]
	case KindFloat32:
		return strconv.FormatFloat(float64(v.f32[i]), 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f64[i], 'g', -1, 64)
	case KindInt32:
		return strconv.FormatInt(int64(v.i32[i]), 10)
	}
	panic("gctx: String on invalid Vector")
}

// Strings formats every element as text.
func (v Vector) Strings() []string {
	if v.kind == KindText {
		return v.text
	}
	out := make([]string, v.Len())
	for i := range out {
		out[i] = v.String(i)
	}
	return out
}

// pick returns a new Vector holding the elements at idx, in order.
func (v Vector) pick(idx []uint32) Vector {
	switch v.kind {
	case KindText:
		return Text(pick(v.text, idx))
	case KindFloat32:
		return Float32(pick(v.f32, idx))
	case KindFloat64:
		return Float64(pick(v.f64, idx))
	case KindInt32:
		return Int32(pick(v.i32, idx))
	}
	return v
}

func pick[T any](src []T, idx []uint32) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
