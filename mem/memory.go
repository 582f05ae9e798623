package mem

import (
	"fmt"
	"math"

	"github.com/warfish/bootleg/internal/buf"
	"github.com/warfish/bootleg/internal/format"
	"github.com/warfish/bootleg/internal/mmap"
)

// Memory is a Region bound to the bytes that back it.
//
// NOT thread-safe.
type Memory struct {
	region  Region
	data    []byte
	release func() error
}

// Map backs r with a fresh anonymous host mapping. The contents start
// zeroed, like RAM after the firmware clears it. Call Close to unmap.
func Map(r Region) (*Memory, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Size > math.MaxInt {
		return nil, fmt.Errorf("%w: %s too large to map", ErrBadRegion, r)
	}
	data, release, err := mmap.Anon(int(r.Size))
	if err != nil {
		return nil, err
	}
	return &Memory{region: r, data: data, release: release}, nil
}

// FromBytes binds r to b. Only the first r.Size bytes of b are used.
func FromBytes(r Region, b []byte) (*Memory, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if uint64(len(b)) < r.Size {
		return nil, fmt.Errorf("%w: have %d bytes, region %s needs %d",
			ErrShortBuffer, len(b), r, r.Size)
	}
	return &Memory{region: r, data: b[:r.Size:r.Size]}, nil
}

// Region returns the descriptor this memory backs.
func (m *Memory) Region() Region { return m.region }

// Bytes returns the whole backing buffer.
func (m *Memory) Bytes() []byte { return m.data }

// Offset translates a into an offset of the backing buffer, requiring the
// n bytes starting at a to lie inside the region.
func (m *Memory) Offset(a Addr, n uint64) (int, error) {
	off, err := buf.CheckSpan(uint64(m.region.Base), m.region.Size, uint64(a), n)
	if err != nil {
		return 0, fmt.Errorf("%w: %s+%d in %s: %w", ErrOutOfRange, a, n, m.region, err)
	}
	return off, nil
}

// Slice returns the n bytes starting at a. The slice aliases the region.
func (m *Memory) Slice(a Addr, n uint64) ([]byte, error) {
	off, err := m.Offset(a, n)
	if err != nil {
		return nil, err
	}
	b, ok := buf.Slice(m.data, off, int(n))
	if !ok {
		return nil, fmt.Errorf("%w: %s+%d in %s", ErrOutOfRange, a, n, m.region)
	}
	return b, nil
}

// ReadU32 reads the little-endian uint32 at a.
func (m *Memory) ReadU32(a Addr) (uint32, error) {
	off, err := m.Offset(a, 4)
	if err != nil {
		return 0, err
	}
	return format.ReadU32(m.data, off), nil
}

// PutU32 writes v as a little-endian uint32 at a.
func (m *Memory) PutU32(a Addr, v uint32) error {
	off, err := m.Offset(a, 4)
	if err != nil {
		return err
	}
	format.PutU32(m.data, off, v)
	return nil
}

// ReadWord reads a w-wide little-endian word at a.
func (m *Memory) ReadWord(a Addr, w Word) (uint64, error) {
	off, err := m.Offset(a, w.Bytes())
	if err != nil {
		return 0, err
	}
	return format.ReadWord(m.data, off, int(w)), nil
}

// PutWord writes v as a w-wide little-endian word at a.
func (m *Memory) PutWord(a Addr, w Word, v uint64) error {
	off, err := m.Offset(a, w.Bytes())
	if err != nil {
		return err
	}
	format.PutWord(m.data, off, int(w), v)
	return nil
}

// Zero clears the whole region.
func (m *Memory) Zero() {
	clear(m.data)
}

// Close releases the backing mapping, if any. The Memory must not be used
// afterwards.
func (m *Memory) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	m.data = nil
	return err
}
