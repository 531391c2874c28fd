package value

import (
	"bytes"
	"math"
	"math/big"
)

// Equal reports whether a and b are structurally equal. Floats compare by
// bit pattern, so NaN equals itself; big integers compare by value.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Float32:
		b, ok := b.(Float32)
		return ok && math.Float32bits(float32(a)) == math.Float32bits(float32(b))
	case Float64:
		b, ok := b.(Float64)
		return ok && math.Float64bits(float64(a)) == math.Float64bits(float64(b))
	case Opt:
		b, ok := b.(Opt)
		return ok && Equal(a.Value, b.Value)
	case Vec:
		b, ok := b.(Vec)
		return ok && equalSlices(a, b)
	case Record:
		b, ok := b.(Record)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !equalFields(a[i], b[i]) {
				return false
			}
		}
		return true
	case Variant:
		b, ok := b.(Variant)
		return ok && equalFields(a.Field, b.Field)
	case Nat:
		b, ok := b.(Nat)
		return ok && equalBig(a.N, b.N)
	case Int:
		b, ok := b.(Int)
		return ok && equalBig(a.N, b.N)
	case FileValue:
		b, ok := b.(FileValue)
		return ok && EqualFile(a.File, b.File)
	}
	// The remaining variants are comparable.
	return a == b
}

// EqualFile reports whether two file trees are structurally equal,
// including directory entry order.
func EqualFile(a, b File) bool {
	switch a := a.(type) {
	case Directory:
		b, ok := b.(Directory)
		if !ok || len(a.Entries) != len(b.Entries) {
			return false
		}
		for i := range a.Entries {
			if a.Entries[i].Name != b.Entries[i].Name || !EqualFile(a.Entries[i].File, b.Entries[i].File) {
				return false
			}
		}
		return true
	case TextFile:
		b, ok := b.(TextFile)
		return ok && a == b
	case BinaryFile:
		b, ok := b.(BinaryFile)
		return ok && bytes.Equal(a, b)
	case ValueFile:
		b, ok := b.(ValueFile)
		return ok && Equal(a.Value, b.Value)
	case ArgsFile:
		b, ok := b.(ArgsFile)
		return ok && equalSlices(a.Args, b.Args)
	case nil:
		return b == nil
	}
	return false
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalFields(a, b Field) bool {
	return a.Label == b.Label && Equal(a.Value, b.Value)
}

func equalBig(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
