package heap

import "errors"

var (
	// ErrNoSpace indicates that the arena for the requested size class has no free block.
	ErrNoSpace = errors.New("heap: no free block in size class")

	// ErrTooLarge indicates a request larger than the biggest size class.
	ErrTooLarge = errors.New("heap: allocation too large")

	// ErrNotReady indicates a call before Init.
	ErrNotReady = errors.New("heap: not initialized")

	// ErrAlreadyReady indicates a second Init.
	ErrAlreadyReady = errors.New("heap: already initialized")

	// ErrStale indicates the segment region was scrubbed after Init.
	ErrStale = errors.New("heap: bookkeeping scrubbed")

	// ErrBadOrders indicates an invalid size-class range.
	ErrBadOrders = errors.New("heap: bad order range")

	// ErrBadRegion indicates a heap region that cannot be partitioned.
	ErrBadRegion = errors.New("heap: bad region")

	// ErrBadPointer indicates a pointer that was not returned by Alloc.
	ErrBadPointer = errors.New("heap: bad pointer")

	// ErrCorrupt indicates inconsistent bookkeeping found by Verify.
	ErrCorrupt = errors.New("heap: corrupt bookkeeping")
)
