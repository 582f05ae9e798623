// Package bitmap implements the free-block bit set used by arenas.
//
// A Bitmap is a view over a byte buffer (normally living inside the segment
// region) with one bit per block, least significant bit first: bit i is
// bit (i & 7) of byte (i >> 3). A set bit means the block is free.
//
// Searching works on 32-bit little-endian chunks so fully occupied runs are
// skipped one chunk at a time; inside a non-zero chunk the lowest set bit is
// found with a trailing-zero count. math/bits provides it portably and the
// compiler lowers it to the BSF/TZCNT (or equivalent) instruction where the
// target has one.
package bitmap

import (
	"math/bits"

	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/internal/format"
)

// Size returns the number of bytes needed to hold n bits.
func Size(n uint32) int {
	return int(n>>3) + btoi(n&7 != 0)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Bitmap is a bit set of fixed length over a borrowed byte buffer.
type Bitmap struct {
	bits []byte
	n    uint32
}

// New returns a view of the first Size(n) bytes of b as an n-bit bitmap.
// The contents are left untouched; call Reset to initialize.
func New(b []byte, n uint32) Bitmap {
	check.Assertf(len(b) >= Size(n), "bitmap buffer %d bytes < %d", len(b), Size(n))
	return Bitmap{bits: b[:Size(n)], n: n}
}

// Len returns the number of bits.
func (b Bitmap) Len() uint32 { return b.n }

// Bytes returns the backing bytes.
func (b Bitmap) Bytes() []byte { return b.bits }

// Reset marks every real bit set (free) and every padding bit in the final
// byte clear (occupied), so padding can never be handed out.
func (b Bitmap) Reset() {
	for i := range b.bits {
		b.bits[i] = 0xFF
	}
	if rem := b.n & 7; rem != 0 {
		b.bits[len(b.bits)-1] = byte(1)<<rem - 1
	}
}

// Test reports whether bit i is set.
func (b Bitmap) Test(i uint32) bool {
	check.Assert(i < b.n, "bit index in range")
	return b.bits[i>>3]&(1<<(i&7)) != 0
}

// Set sets bit i (marks the block free).
func (b Bitmap) Set(i uint32) {
	check.Assert(i < b.n, "bit index in range")
	b.bits[i>>3] |= 1 << (i & 7)
}

// Clear clears bit i (marks the block occupied).
func (b Bitmap) Clear(i uint32) {
	check.Assert(i < b.n, "bit index in range")
	b.bits[i>>3] &^= 1 << (i & 7)
}

// First returns the index of the lowest set bit, or false when no bit is set.
func (b Bitmap) First() (uint32, bool) {
	var base uint32

	// Whole chunks.
	nchunks := b.n / format.ChunkBits
	for c := uint32(0); c < nchunks; c++ {
		chunk := format.ReadU32(b.bits, int(c*format.ChunkBytes))
		if chunk != 0 {
			return base + uint32(bits.TrailingZeros32(chunk)), true
		}
		base += format.ChunkBits
	}

	// The trailing partial chunk is copied into a zeroed temporary so bytes
	// past the end of the bitmap read as occupied, then masked to the live
	// bit count.
	if nrem := b.n - base; nrem != 0 {
		var tmp [format.ChunkBytes]byte
		copy(tmp[:], b.bits[base>>3:])
		chunk := format.ReadU32(tmp[:], 0) & (uint32(1)<<nrem - 1)
		if chunk != 0 {
			return base + uint32(bits.TrailingZeros32(chunk)), true
		}
	}

	return 0, false
}

// Count returns the number of set bits.
func (b Bitmap) Count() uint32 {
	var n int
	for _, v := range b.bits {
		n += bits.OnesCount8(v)
	}
	// Padding bits are kept clear by Reset and never set by Set.
	return uint32(n)
}
