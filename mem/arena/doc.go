// Package arena implements one size class of the heap.
//
// An arena owns a contiguous run of equally sized blocks (2^order bytes
// each) in the heap region and a bitmap with one bit per block. The arena
// header and its bitmap do not live in the heap region: they are allocated
// once from the segment allocator and never released.
//
// Header layout in the segment region (packed, little-endian):
//
//	0x00      blocks   one word: address of block 0
//	word      nblocks  uint32
//	word+4    order    uint8
//	word+5    bitmap   ceil(nblocks/8) bytes, set bit = free block
//
// Allocation is leftmost-first: the lowest-address free block always wins,
// so the same sequence of calls always yields the same addresses.
package arena
