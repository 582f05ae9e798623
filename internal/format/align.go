package format

// Alignment utilities. All alignments are powers of two.

// AlignUp returns n rounded up to the next multiple of align.
//
// Example:
//
//	AlignUp(1, 4)  = 4
//	AlignUp(4, 4)  = 4
//	AlignUp(5, 8)  = 8
//	AlignUp(9, 8)  = 16
func AlignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// AlignUpSafe is AlignUp with overflow detection. ok is false when the
// rounded value does not fit in a uint64.
func AlignUpSafe(n, align uint64) (uint64, bool) {
	if n > ^uint64(0)-(align-1) {
		return 0, false
	}
	return AlignUp(n, align), true
}

// IsAligned reports whether n is a multiple of align.
func IsAligned(n, align uint64) bool {
	return n&(align-1) == 0
}
