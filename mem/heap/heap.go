package heap

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/warfish/bootleg/internal/buf"
	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/internal/format"
	"github.com/warfish/bootleg/internal/logger"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/arena"
	"github.com/warfish/bootleg/mem/dataseg"
)

// Heap is the size-class allocator facade.
//
// NOT thread-safe.
type Heap struct {
	seg    *dataseg.Allocator
	m      *mem.Memory
	logger *slog.Logger

	minOrder uint8
	maxOrder uint8

	// lookup is the address of the arena lookup table in the segment
	// region: one word per order, holding the arena header address.
	lookup mem.Addr

	// arenas mirrors the lookup table, indexed by order - minOrder.
	// A nil entry is an order that received no whole block.
	arenas []*arena.Arena

	ready      bool
	generation uint64
}

// New prepares a heap over m whose bookkeeping will come from seg. The heap
// is unusable until Init.
func New(seg *dataseg.Allocator, m *mem.Memory, opts ...Option) (*Heap, error) {
	h := &Heap{
		seg:      seg,
		m:        m,
		minOrder: DefaultMinOrder,
		maxOrder: DefaultMaxOrder,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.minOrder > h.maxOrder || h.maxOrder > format.MaxOrder {
		return nil, fmt.Errorf("%w: %d..%d (max %d)", ErrBadOrders, h.minOrder, h.maxOrder, format.MaxOrder)
	}
	if uint64(1)<<h.minOrder <= h.HeaderSize() {
		return nil, fmt.Errorf("%w: %d-byte blocks cannot hold a %d-byte header",
			ErrBadOrders, uint64(1)<<h.minOrder, h.HeaderSize())
	}

	r := m.Region()
	if !format.IsAligned(uint64(r.Base), seg.Word().Bytes()) {
		return nil, fmt.Errorf("%w: base %s not %d-byte aligned", ErrBadRegion, r.Base, seg.Word())
	}
	if r.Overlaps(seg.Memory().Region()) {
		return nil, fmt.Errorf("%w: %s overlaps segment %s", ErrBadRegion, r, seg.Memory().Region())
	}
	return h, nil
}

func (h *Heap) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return logger.L
}

// HeaderSize returns the size of the allocation header: one word.
func (h *Heap) HeaderSize() uint64 { return h.seg.Word().Bytes() }

// MinOrder returns the smallest size class.
func (h *Heap) MinOrder() uint8 { return h.minOrder }

// MaxOrder returns the largest size class.
func (h *Heap) MaxOrder() uint8 { return h.maxOrder }

// Lookup returns the address of the arena lookup table, or mem.Nil before Init.
func (h *Heap) Lookup() mem.Addr { return h.lookup }

func (h *Heap) numOrders() int { return int(h.maxOrder-h.minOrder) + 1 }

// Init allocates the lookup table, partitions the heap region and builds one
// arena per order. The segment allocator must already be initialized.
//
// After the segment has been scrubbed the heap is stale and Init may run
// again: it rebuilds the bookkeeping in the fresh segment and every block
// becomes free. Allocations made before the scrub are lost.
func (h *Heap) Init() error {
	if h.ready && h.generation == h.seg.Generation() {
		return ErrAlreadyReady
	}

	w := h.seg.Word()
	n := h.numOrders()
	tableSize, ok := buf.MulOverflowSafe(uint64(n), w.Bytes())
	check.Assert(ok, "lookup table size fits in uint64")
	h.lookup = h.seg.Alloc(tableSize)
	h.arenas = make([]*arena.Arena, n)

	r := h.m.Region()
	base := r.Base

	// Half the space goes to the smallest order; the rest is shared equally
	// by the others. Shares are rounded down to the word so every arena
	// starts aligned.
	first := r.Size
	if n > 1 {
		first = alignDown(r.Size>>1, w.Bytes())
	}
	h.setArena(0, base, first)
	base = base.Add(first)

	if n > 1 {
		share := alignDown((r.Size>>1)/uint64(n-1), w.Bytes())
		for i := 1; i < n; i++ {
			h.setArena(i, base, share)
			base = base.Add(share)
		}
	}

	h.generation = h.seg.Generation()
	h.ready = true

	h.log().Info("heap ready", "region", r.String(), "orders", fmt.Sprintf("%d..%d", h.minOrder, h.maxOrder),
		"lookup", h.lookup.String(), "segment_used", h.seg.Used())
	return nil
}

func (h *Heap) setArena(i int, base mem.Addr, size uint64) {
	order := h.minOrder + uint8(i)
	entry := h.lookup.Add(uint64(i) * h.seg.Word().Bytes())

	a, ok := arena.New(h.seg, base, size, order)
	if !ok {
		h.log().Warn("heap: size class has no blocks", "order", order, "share", size)
		h.putEntry(entry, mem.Nil)
		return
	}
	if h.logger != nil {
		a.SetLogger(h.logger)
	}
	h.arenas[i] = a
	h.putEntry(entry, a.Header())
	h.log().Debug("heap: arena", "order", order, "blocks", a.Len(),
		"region", a.Blocks().String(), "header", a.Header().String())
}

func (h *Heap) putEntry(entry, v mem.Addr) {
	err := h.seg.Memory().PutWord(entry, h.seg.Word(), uint64(v))
	check.Assert(err == nil, "lookup entry inside segment")
}

func alignDown(n, align uint64) uint64 { return n &^ (align - 1) }

// OrderFor returns the exponent of size rounded up to the next power of two:
// the smallest n with 2^n >= size.
func OrderFor(size uint64) uint8 {
	if size <= 1 {
		return 0
	}
	return uint8(bits.Len64(size - 1))
}

func (h *Heap) usable() error {
	if !h.ready {
		return ErrNotReady
	}
	if h.seg.Generation() != h.generation {
		return ErrStale
	}
	return nil
}

// Alloc returns the address of at least size usable bytes, aligned to the
// target word. It fails with ErrTooLarge when no size class can hold the
// request and with ErrNoSpace when the matching arena is full.
func (h *Heap) Alloc(size uint64) (mem.Addr, error) {
	if err := h.usable(); err != nil {
		return mem.Nil, err
	}

	// We don't support allocations at or above the largest block size.
	if size >= uint64(1)<<h.maxOrder {
		return mem.Nil, ErrTooLarge
	}

	total := size + h.HeaderSize()
	h.log().Debug("heap alloc", "size", size, "total", total)

	order := OrderFor(total)
	if order > h.maxOrder {
		return mem.Nil, ErrTooLarge
	} else if order < h.minOrder {
		order = h.minOrder
	}

	a := h.arenas[order-h.minOrder]
	if a == nil {
		return mem.Nil, ErrNoSpace
	}
	check.Assert(a.Order() == order, "arena order matches lookup slot")

	block, ok := a.Alloc(total)
	if !ok {
		return mem.Nil, ErrNoSpace
	}

	err := h.m.PutWord(block, h.seg.Word(), uint64(order))
	check.Assert(err == nil, "block inside heap region")

	p := block.Add(h.HeaderSize())
	check.Assert(format.IsAligned(uint64(p), h.seg.Word().Bytes()), "pointer word-aligned")
	return p, nil
}

// Free releases an allocation returned by Alloc. Freeing mem.Nil is a no-op.
// Pointers whose header lies outside the heap region are ignored; a header
// holding an order outside the configured range is a programming error.
func (h *Heap) Free(p mem.Addr) {
	if p == mem.Nil {
		return
	}
	if err := h.usable(); err != nil {
		h.log().Warn("heap: free ignored", "addr", p.String(), "err", err)
		return
	}

	a, hdr, err := h.arenaOf(p)
	if err != nil {
		h.log().Warn("heap: free ignored", "addr", p.String(), "err", err)
		return
	}
	a.Free(hdr)
}

// arenaOf reads the header before p and returns the arena it names together
// with the header address.
func (h *Heap) arenaOf(p mem.Addr) (*arena.Arena, mem.Addr, error) {
	hdr := p - mem.Addr(h.HeaderSize())
	v, err := h.m.ReadWord(hdr, h.seg.Word())
	if err != nil {
		return nil, mem.Nil, fmt.Errorf("%w: %w", ErrBadPointer, err)
	}

	inRange := v >= uint64(h.minOrder) && v <= uint64(h.maxOrder)
	check.Assertf(inRange, "header order %d in [%d, %d]", v, h.minOrder, h.maxOrder)
	if !inRange {
		return nil, mem.Nil, fmt.Errorf("%w: header order %d at %s", ErrBadPointer, v, hdr)
	}

	order := uint8(v)
	a := h.arenas[order-h.minOrder]
	check.Assert(a != nil && a.Order() == order, "arena order matches header")
	if a == nil {
		return nil, mem.Nil, fmt.Errorf("%w: order %d has no arena", ErrBadPointer, order)
	}
	return a, hdr, nil
}

// Bytes returns the usable bytes of the allocation at p. The slice aliases
// the heap region and is only valid until p is freed.
func (h *Heap) Bytes(p mem.Addr) ([]byte, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	a, _, err := h.arenaOf(p)
	if err != nil {
		return nil, err
	}
	return h.m.Slice(p, a.BlockSize()-h.HeaderSize())
}

// Usable returns how many bytes the allocation at p can hold.
func (h *Heap) Usable(p mem.Addr) (uint64, error) {
	b, err := h.Bytes(p)
	if err != nil {
		return 0, err
	}
	return uint64(len(b)), nil
}

// Arena returns the arena serving order, or nil when the order is out of
// range or received no blocks.
func (h *Heap) Arena(order uint8) *arena.Arena {
	if !h.ready || order < h.minOrder || order > h.maxOrder {
		return nil
	}
	return h.arenas[order-h.minOrder]
}
