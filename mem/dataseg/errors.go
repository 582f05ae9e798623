package dataseg

import (
	"errors"
	"fmt"

	"github.com/warfish/bootleg/mem"
)

var (
	// ErrExhausted indicates an allocation that would reach or pass the end of the region.
	ErrExhausted = errors.New("dataseg: region exhausted")

	// ErrTooSmall indicates a region that cannot even hold its own cursor.
	ErrTooSmall = errors.New("dataseg: region must be larger than one word")

	// ErrMisaligned indicates a region base that is not word-aligned.
	ErrMisaligned = errors.New("dataseg: region base not word-aligned")
)

// FatalError is handed to the abort primitive when the segment overruns.
type FatalError struct {
	Region    mem.Region
	Cursor    uint64 // cursor before the failed allocation
	Requested uint64 // requested size, before alignment
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("dataseg: region %s exhausted: cursor=%#x requested=%d",
		e.Region, e.Cursor, e.Requested)
}

func (e *FatalError) Unwrap() error { return ErrExhausted }
