package mem

import "errors"

var (
	// ErrOutOfRange indicates an address range outside the region.
	ErrOutOfRange = errors.New("mem: address out of range")

	// ErrBadRegion indicates an invalid region descriptor.
	ErrBadRegion = errors.New("mem: bad region")

	// ErrBadWord indicates an unsupported pointer width.
	ErrBadWord = errors.New("mem: unsupported word size")

	// ErrShortBuffer indicates a backing buffer smaller than its region.
	ErrShortBuffer = errors.New("mem: backing buffer smaller than region")
)
