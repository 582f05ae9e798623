package dataseg

import (
	"fmt"
	"log/slog"

	"github.com/warfish/bootleg/internal/buf"
	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/internal/format"
	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem"
)

// Allocator is the segment bump allocator.
//
// NOT thread-safe. The cursor update is a read-modify-write of the first
// word of the region; concurrent or interrupt-driven callers must serialize
// around Alloc.
type Allocator struct {
	m      *mem.Memory
	word   mem.Word
	abort  func(error)
	logger *slog.Logger

	// generation counts scrubs so structures built on the region can tell
	// they have been invalidated.
	generation uint64
}

// New binds an allocator to m. The region must be word-aligned and larger
// than one word. Call Init before the first Alloc.
func New(m *mem.Memory, opts ...Option) (*Allocator, error) {
	a := &Allocator{m: m, word: mem.Word32}
	for _, opt := range opts {
		opt(a)
	}
	if !a.word.Valid() {
		return nil, fmt.Errorf("%w: %d", mem.ErrBadWord, a.word)
	}

	r := m.Region()
	if !format.IsAligned(uint64(r.Base), a.word.Bytes()) {
		return nil, fmt.Errorf("%w: base %s, word %d", ErrMisaligned, r.Base, a.word)
	}
	if r.Size <= a.word.Bytes() {
		return nil, fmt.Errorf("%w: size %d", ErrTooSmall, r.Size)
	}
	return a, nil
}

func (a *Allocator) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return logger.L
}

// Init establishes the region: the first allocation reserves the word at
// offset 0 that stores the cursor itself. It must run exactly once, before
// any other allocation.
func (a *Allocator) Init() {
	check.Assert(a.cursor() == 0, "dataseg initialized once")
	a.allocAt(0, a.word.Bytes())
	a.log().Info("dataseg ready", "region", a.m.Region().String(), "word", a.word.String())
}

// Alloc returns the address at the current cursor and advances the cursor by
// size rounded up to word alignment. Running out of region is fatal.
func (a *Allocator) Alloc(size uint64) mem.Addr {
	cursor := a.cursor()
	check.Assert(cursor != 0, "dataseg initialized")
	return a.allocAt(cursor, size)
}

func (a *Allocator) allocAt(offset, size uint64) mem.Addr {
	r := a.m.Region()
	ptr := r.Base.Add(offset)

	next, ok := format.AlignUpSafe(size, a.word.Bytes())
	if ok {
		next, ok = buf.AddOverflowSafe(offset, next)
	}
	if !ok || next >= r.Size {
		a.fatal(&FatalError{Region: r, Cursor: offset, Requested: size})
	}

	check.Assert(format.IsAligned(next, a.word.Bytes()), "cursor word-aligned")
	a.setCursor(next)

	a.log().Debug("dataseg alloc", "addr", ptr.String(), "size", size, "cursor", next)
	return ptr
}

func (a *Allocator) fatal(err *FatalError) {
	a.log().Error("dataseg exhausted", "region", err.Region.String(),
		"cursor", err.Cursor, "requested", err.Requested)
	if a.abort != nil {
		a.abort(err)
	}
	panic(err)
}

// Scrub zeroes the entire region. Every structure built on it is destroyed.
//
// Scrub then re-establishes the cursor word, so the allocator is
// immediately usable again and the cursor can never alias the first new
// allocation. Generation is bumped so holders of old structures can detect
// that they are stale.
func (a *Allocator) Scrub() {
	a.m.Zero()
	a.generation++
	a.allocAt(0, a.word.Bytes())
	a.log().Warn("dataseg scrubbed", "region", a.m.Region().String(), "generation", a.generation)
}

// cursor reads the cursor word from offset 0 of the region.
func (a *Allocator) cursor() uint64 {
	return format.ReadWord(a.m.Bytes(), 0, int(a.word))
}

func (a *Allocator) setCursor(v uint64) {
	format.PutWord(a.m.Bytes(), 0, int(a.word), v)
}

// Used returns the number of bytes consumed, including the cursor word.
func (a *Allocator) Used() uint64 { return a.cursor() }

// Available returns the largest size a single Alloc can take without
// exhausting the region. The cursor must stay below the region size, so the
// last byte of the region is never handed out.
func (a *Allocator) Available() uint64 {
	c := a.cursor()
	size := a.m.Region().Size
	if c >= size {
		return 0
	}
	return alignDown(size-c-1, a.word.Bytes())
}

func alignDown(n, align uint64) uint64 { return n &^ (align - 1) }

// Generation returns the number of times the region has been scrubbed.
func (a *Allocator) Generation() uint64 { return a.generation }

// Memory returns the region the allocator manages.
func (a *Allocator) Memory() *mem.Memory { return a.m }

// Word returns the target pointer width.
func (a *Allocator) Word() mem.Word { return a.word }
