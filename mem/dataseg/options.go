package dataseg

import (
	"log/slog"

	"github.com/warfish/bootleg/mem"
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithWord sets the target pointer width. Default: mem.Word32.
func WithWord(w mem.Word) Option {
	return func(a *Allocator) { a.word = w }
}

// WithAbort installs the fatal-abort primitive. abort must not return; if it
// does, Alloc panics with the same error. Default: panic(err).
func WithAbort(abort func(error)) Option {
	return func(a *Allocator) { a.abort = abort }
}

// WithLogger sets the logger. Default: the process-wide logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}
