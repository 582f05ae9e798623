// Package format holds the byte-level conventions shared by the allocator
// stack: word widths, alignment arithmetic and little-endian field access.
//
// Everything stored inside a region (the segment cursor, arena headers, the
// heap lookup table, allocation headers) goes through these helpers so the
// layout matches the target regardless of the host byte order.
package format
