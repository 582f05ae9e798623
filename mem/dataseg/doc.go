// Package dataseg implements the segment allocator: a never-freed bump
// allocator over one fixed region.
//
// The firmware always runs from read-only memory, so it has no writable
// .data segment. Long-lived bookkeeping (arena headers and bitmaps, the heap
// lookup table) is carved out of a reserved region instead. Nothing is ever
// released individually, so there is no free list and no fragmentation.
//
// The allocation cursor is stored inside the region itself, in the first
// word. Init reserves that word with the first allocation.
//
//	seg, err := dataseg.New(m)
//	if err != nil {
//	    return err
//	}
//	seg.Init()
//	hdr := seg.Alloc(13) // word-aligned, never freed
//
// Exhaustion is a configuration error, not a runtime condition: Alloc hands
// the failure to the fatal-abort primitive (see WithAbort) and never returns
// an error.
//
// Allocator instances are not thread-safe.
package dataseg
