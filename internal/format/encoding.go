package format

import "encoding/binary"

// Binary encoding utilities for little-endian integers.
//
// Implementation: Uses encoding/binary.LittleEndian, which the compiler
// inlines into plain loads and stores.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutWord writes v as a width-byte little-endian word (Word32 or Word64).
// For Word32 the value is truncated to 32 bits.
func PutWord(b []byte, off int, width int, v uint64) {
	if width == Word32 {
		PutU32(b, off, uint32(v))
		return
	}
	PutU64(b, off, v)
}

// ReadWord reads a width-byte little-endian word (Word32 or Word64).
func ReadWord(b []byte, off int, width int) uint64 {
	if width == Word32 {
		return uint64(ReadU32(b, off))
	}
	return ReadU64(b, off)
}
