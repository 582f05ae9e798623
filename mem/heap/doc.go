// Package heap implements the segregated size-class heap.
//
// # Overview
//
// The heap region is statically partitioned at Init into one arena per
// power-of-two size class ("order"). Half of the region goes to the smallest
// order, which serves the most common small allocations; the other half is
// split evenly among the larger orders. Each arena tracks its blocks with a
// bitmap, so allocation and free are a bounded bitmap scan.
//
// # Size Classes
//
// With the reference configuration (orders 6 to 10):
//
//	Order  6:   64-byte blocks  (half the region)
//	Order  7:  128-byte blocks
//	Order  8:  256-byte blocks
//	Order  9:  512-byte blocks
//	Order 10: 1024-byte blocks
//
// # Allocation Header
//
// Every allocation is prefixed by a one-word header recording its order, so
// Free needs nothing but the pointer. The usable size of a request is
// therefore size + header, and a request lands in the smallest order whose
// block holds both:
//
//	Alloc(60) -> 64 total  -> order 6
//	Alloc(61) -> 65 total  -> order 7
//
// There is no fallback: when the chosen arena is full, Alloc fails with
// ErrNoSpace even if a larger order has room.
//
// # Bookkeeping
//
// Arena headers, bitmaps and the lookup table (one word per order holding
// the arena header address) are allocated from the segment allocator. A
// segment scrub destroys them; the heap notices through the segment
// generation and fails every later Alloc with ErrStale.
//
// # Thread Safety
//
// Heap instances are not thread-safe. Callers must serialize Alloc and Free
// and must not call them from an interrupt handler that can preempt another
// heap call.
package heap
