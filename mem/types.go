package mem

import (
	"fmt"

	"github.com/warfish/bootleg/internal/buf"
	"github.com/warfish/bootleg/internal/format"
)

// Addr is a physical address.
type Addr uint64

// Nil is the "no allocation" address.
const Nil Addr = 0

// Add returns a+n.
func (a Addr) Add(n uint64) Addr { return a + Addr(n) }

func (a Addr) String() string { return fmt.Sprintf("%#x", uint64(a)) }

// Word is the target pointer width in bytes.
type Word int

const (
	Word32 Word = format.Word32
	Word64 Word = format.Word64
)

// Valid reports whether w is a supported width.
func (w Word) Valid() bool { return w == Word32 || w == Word64 }

// Bytes returns the width as a uint64, convenient for address arithmetic.
func (w Word) Bytes() uint64 { return uint64(w) }

// Align rounds n up to the word alignment.
func (w Word) Align(n uint64) uint64 { return format.AlignUp(n, uint64(w)) }

func (w Word) String() string { return fmt.Sprintf("%d-bit", int(w)*8) }

// Region is a fixed physical byte range [Base, Base+Size).
type Region struct {
	Base Addr   `yaml:"base" json:"base"`
	Size uint64 `yaml:"size" json:"size"`
}

// End returns the first address past the region.
func (r Region) End() Addr { return r.Base.Add(r.Size) }

// Contains reports whether a lies inside the region.
func (r Region) Contains(a Addr) bool {
	return a >= r.Base && uint64(a-r.Base) < r.Size
}

// Overlaps reports whether r and o share at least one byte.
func (r Region) Overlaps(o Region) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}
	return r.Base < o.End() && o.Base < r.End()
}

// Validate checks that the region is non-empty and does not wrap the
// address space.
func (r Region) Validate() error {
	if r.Size == 0 {
		return fmt.Errorf("%w: %s is empty", ErrBadRegion, r)
	}
	if _, ok := buf.AddOverflowSafe(uint64(r.Base), r.Size); !ok {
		return fmt.Errorf("%w: %s wraps the address space", ErrBadRegion, r)
	}
	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x-%#x)", uint64(r.Base), uint64(r.Base)+r.Size)
}
