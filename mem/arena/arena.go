package arena

import (
	"fmt"
	"log/slog"

	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/internal/format"
	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/bitmap"
	"github.com/warfish/bootleg/mem/dataseg"
)

const (
	nblocksSize = 4
	orderSize   = 1
)

// HeaderSize returns the size of the fixed part of an arena header for the
// given word width.
func HeaderSize(w mem.Word) uint64 {
	return w.Bytes() + nblocksSize + orderSize
}

// Arena is a view of one size class whose state lives in the segment region.
//
// NOT thread-safe. The bitmap search-and-clear in Alloc and the set in Free
// are not atomic.
type Arena struct {
	hdr     mem.Addr
	blocks  mem.Addr
	nblocks uint32
	order   uint8
	bitmap  bitmap.Bitmap
	logger  *slog.Logger

	doubleFrees uint64
}

// New constructs an arena over the size bytes starting at blocks, with
// blocks of 2^order bytes. It returns false when size holds no whole block.
// The header and bitmap are allocated from seg; running out of segment is
// fatal there.
func New(seg *dataseg.Allocator, blocks mem.Addr, size uint64, order uint8) (*Arena, bool) {
	check.Assert(order <= format.MaxOrder, "order <= MaxOrder")

	n := size >> order
	if n == 0 {
		return nil, false
	}
	check.Assertf(n <= uint64(^uint32(0)), "%d blocks fit in uint32", n)
	nblocks := uint32(n)

	w := seg.Word()
	bmSize := uint64(bitmap.Size(nblocks))
	check.Assert(bmSize < size, "bitmap smaller than the blocks it tracks")

	hdr := seg.Alloc(HeaderSize(w) + bmSize)

	b, err := seg.Memory().Slice(hdr, HeaderSize(w)+bmSize)
	check.Assert(err == nil, "arena header inside segment")
	format.PutWord(b, 0, int(w), uint64(blocks))
	format.PutU32(b, int(w.Bytes()), nblocks)
	b[w.Bytes()+nblocksSize] = order

	a := &Arena{
		hdr:     hdr,
		blocks:  blocks,
		nblocks: nblocks,
		order:   order,
		bitmap:  bitmap.New(b[HeaderSize(w):], nblocks),
	}
	a.bitmap.Reset()
	return a, true
}

// Load rebuilds the view of an arena from the header at hdr.
func Load(seg *dataseg.Allocator, hdr mem.Addr) (*Arena, error) {
	w := seg.Word()
	m := seg.Memory()

	fixed, err := m.Slice(hdr, HeaderSize(w))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	blocks := mem.Addr(format.ReadWord(fixed, 0, int(w)))
	nblocks := format.ReadU32(fixed, int(w.Bytes()))
	order := fixed[w.Bytes()+nblocksSize]

	if nblocks == 0 || order > format.MaxOrder {
		return nil, fmt.Errorf("%w at %s: nblocks=%d order=%d", ErrBadHeader, hdr, nblocks, order)
	}

	bm, err := m.Slice(hdr.Add(HeaderSize(w)), uint64(bitmap.Size(nblocks)))
	if err != nil {
		return nil, fmt.Errorf("%w: bitmap: %w", ErrBadHeader, err)
	}

	return &Arena{
		hdr:     hdr,
		blocks:  blocks,
		nblocks: nblocks,
		order:   order,
		bitmap:  bitmap.New(bm, nblocks),
	}, nil
}

// SetLogger sets the logger. Default: the process-wide logger.L.
func (a *Arena) SetLogger(l *slog.Logger) { a.logger = l }

func (a *Arena) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return logger.L
}

// Alloc takes the lowest free block. size must not exceed the block size.
// It returns false when every block is occupied.
func (a *Arena) Alloc(size uint64) (mem.Addr, bool) {
	check.Assertf(size <= a.BlockSize(), "size %d <= block size %d", size, a.BlockSize())

	block, ok := a.bitmap.First()
	if !ok {
		return mem.Nil, false
	}
	return a.allocBlock(block), true
}

func (a *Arena) allocBlock(block uint32) mem.Addr {
	check.Assert(block < a.nblocks, "block < nblocks")

	a.log().Debug("arena: allocate block", "order", a.order, "block", block)

	a.bitmap.Clear(block)
	return a.blocks.Add(uint64(block) << a.order)
}

// Free releases the block containing p. Addresses outside the arena's block
// range are ignored.
func (a *Arena) Free(p mem.Addr) {
	block, ok := a.blockOf(p)
	if !ok {
		a.log().Debug("arena: ignoring free outside block range", "order", a.order, "addr", p.String())
		return
	}
	a.freeBlock(block)
}

func (a *Arena) freeBlock(block uint32) {
	check.Assert(block < a.nblocks, "block < nblocks")

	if a.bitmap.Test(block) {
		// The bit is already set; setting it again is harmless to the
		// bitmap but means a caller freed twice.
		a.doubleFrees++
		a.log().Warn("arena: double free", "order", a.order, "block", block)
		return
	}

	a.log().Debug("arena: free block", "order", a.order, "block", block)
	a.bitmap.Set(block)
}

// blockOf maps p to a block index. The subtraction wraps for addresses
// below the arena, which the bound check then rejects.
func (a *Arena) blockOf(p mem.Addr) (uint32, bool) {
	idx := uint64(p-a.blocks) >> a.order
	if idx >= uint64(a.nblocks) {
		return 0, false
	}
	return uint32(idx), true
}

// Contains reports whether p lies inside one of the arena's blocks.
func (a *Arena) Contains(p mem.Addr) bool {
	_, ok := a.blockOf(p)
	return ok
}

// IsFree reports whether the block containing p is free.
func (a *Arena) IsFree(p mem.Addr) bool {
	block, ok := a.blockOf(p)
	return ok && a.bitmap.Test(block)
}

// Order returns the size-class exponent.
func (a *Arena) Order() uint8 { return a.order }

// BlockSize returns 2^order.
func (a *Arena) BlockSize() uint64 { return 1 << a.order }

// Len returns the number of blocks.
func (a *Arena) Len() uint32 { return a.nblocks }

// FreeBlocks returns the number of free blocks.
func (a *Arena) FreeBlocks() uint32 { return a.bitmap.Count() }

// Header returns the address of the arena header in the segment region.
func (a *Arena) Header() mem.Addr { return a.hdr }

// Blocks returns the heap sub-region the arena hands out.
func (a *Arena) Blocks() mem.Region {
	return mem.Region{Base: a.blocks, Size: uint64(a.nblocks) << a.order}
}

// Stats is a snapshot of arena occupancy.
type Stats struct {
	Order       uint8      `json:"order"`
	BlockSize   uint64     `json:"block_size"`
	Blocks      uint32     `json:"blocks"`
	Free        uint32     `json:"free"`
	Used        uint32     `json:"used"`
	Region      mem.Region `json:"region"`
	Header      mem.Addr   `json:"header"`
	DoubleFrees uint64     `json:"double_frees"`
}

// Stats returns a snapshot of the arena.
func (a *Arena) Stats() Stats {
	free := a.FreeBlocks()
	return Stats{
		Order:       a.order,
		BlockSize:   a.BlockSize(),
		Blocks:      a.nblocks,
		Free:        free,
		Used:        a.nblocks - free,
		Region:      a.Blocks(),
		Header:      a.hdr,
		DoubleFrees: a.doubleFrees,
	}
}
