// Package buf contains overflow-safe helpers for translating physical
// address ranges into offsets of a backing byte buffer.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow uint64.
func AddOverflowSafe(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow uint64.
func MulOverflowSafe(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// CheckSpan validates that the n-byte range starting at addr lies inside the
// window [base, base+size). It returns the offset of addr relative to base,
// or an error describing the specific failure (underflow, overflow or out of
// bounds).
//
//	off, err := buf.CheckSpan(r.Base, r.Size, addr, 4)
//	if err != nil {
//	    return fmt.Errorf("header: %w", err)
//	}
func CheckSpan(base, size, addr, n uint64) (int, error) {
	if addr < base {
		return 0, fmt.Errorf("below window: addr=%#x < base=%#x", addr, base)
	}
	off := addr - base
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: off=%#x + n=%d", off, n)
	}
	if end > size {
		return 0, fmt.Errorf("bounds: end=%#x > size=%#x", end, size)
	}
	if off > math.MaxInt {
		return 0, fmt.Errorf("offset %#x does not fit in int", off)
	}
	return int(off), nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b). The
// capacity is clipped to n so appends cannot spill into neighbouring bytes.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	if n > len(b)-off {
		return nil, false
	}
	return b[off : off+n : off+n], true
}
