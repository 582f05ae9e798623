// Package platform is the bootstrap side of the memory foundation: the
// static data map (Layout) and the ordered bring-up of the allocator stack.
//
// Boot runs the init entry points in the only valid order:
//
//	dataseg.Init  ->  heap.Init  ->  steady state
//
// and records the heap lookup table address in the word slot immediately
// after the segment region, where the firmware data map expects it.
//
// Hardware bring-up unrelated to memory (interrupt controller discovery,
// legacy bus configuration) is not part of this package.
package platform
