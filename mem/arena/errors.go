package arena

import "errors"

var (
	// ErrBadHeader indicates a header that does not describe a valid arena.
	ErrBadHeader = errors.New("arena: bad header")
)
