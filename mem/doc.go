// Package mem describes the physical memory the allocator stack runs on.
//
// # Overview
//
// The firmware has no loader-provided data segment, so everything it needs
// at runtime lives in fixed physical regions declared at build time. This
// package models each region as an explicit descriptor (Region: base address
// plus byte capacity) bound to a backing byte buffer (Memory). The same
// allocator code therefore runs against an anonymous host mapping in the
// simulator, against a plain []byte in tests, or against a mapped window of
// real hardware.
//
// # Addresses
//
// Addr is a physical address. Allocators hand out Addr values rather than Go
// pointers; Memory translates an address range into a slice of its buffer and
// rejects ranges that fall outside the region.
//
// # Words
//
// Word is the pointer width of the target (4 bytes on the reference 32-bit
// firmware, 8 on 64-bit). It is both the alignment granularity of the
// allocators and the width of every address stored inside a region.
//
// # Thread Safety
//
// Memory does no locking. The allocators built on it assume a single thread
// of control with no reentrancy from interrupt handlers.
//
// # Related Packages
//
//   - github.com/warfish/bootleg/mem/dataseg: never-freed bump allocator
//   - github.com/warfish/bootleg/mem/arena: one bitmap-tracked size class
//   - github.com/warfish/bootleg/mem/heap: the segregated size-class heap
package mem
