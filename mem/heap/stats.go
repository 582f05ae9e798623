package heap

import (
	"fmt"

	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/arena"
)

// Stats summarizes heap occupancy.
type Stats struct {
	Region      mem.Region    `json:"region"`
	Lookup      mem.Addr      `json:"lookup"`
	HeaderSize  uint64        `json:"header_size"`
	Arenas      []arena.Stats `json:"arenas"`
	TotalBlocks uint32        `json:"total_blocks"`
	FreeBlocks  uint32        `json:"free_blocks"`
	BytesInUse  uint64        `json:"bytes_in_use"`
}

// Stats returns a snapshot of every arena. Orders without blocks are omitted.
func (h *Heap) Stats() Stats {
	st := Stats{
		Region:     h.m.Region(),
		Lookup:     h.lookup,
		HeaderSize: h.HeaderSize(),
	}
	for _, a := range h.arenas {
		if a == nil {
			continue
		}
		as := a.Stats()
		st.Arenas = append(st.Arenas, as)
		st.TotalBlocks += as.Blocks
		st.FreeBlocks += as.Free
		st.BytesInUse += uint64(as.Used) * as.BlockSize
	}
	return st
}

// Verify re-reads the lookup table from the segment region and checks that
// it agrees with the live arenas, that every arena lies inside the heap
// region, and that no two arenas share a byte.
func (h *Heap) Verify() error {
	if err := h.usable(); err != nil {
		return err
	}

	w := h.seg.Word()
	region := h.m.Region()
	var seen []mem.Region

	for i, live := range h.arenas {
		order := h.minOrder + uint8(i)
		v, err := h.seg.Memory().ReadWord(h.lookup.Add(uint64(i)*w.Bytes()), w)
		if err != nil {
			return fmt.Errorf("%w: lookup slot %d: %w", ErrCorrupt, i, err)
		}
		hdr := mem.Addr(v)

		if live == nil {
			if hdr != mem.Nil {
				return fmt.Errorf("%w: order %d has table entry %s but no arena", ErrCorrupt, order, hdr)
			}
			continue
		}
		if hdr != live.Header() {
			return fmt.Errorf("%w: order %d table entry %s, arena header %s", ErrCorrupt, order, hdr, live.Header())
		}

		a, err := arena.Load(h.seg, hdr)
		if err != nil {
			return fmt.Errorf("%w: order %d: %w", ErrCorrupt, order, err)
		}
		if a.Order() != order {
			return fmt.Errorf("%w: slot for order %d holds order %d", ErrCorrupt, order, a.Order())
		}

		blocks := a.Blocks()
		if blocks.Base < region.Base || blocks.End() > region.End() {
			return fmt.Errorf("%w: order %d blocks %s outside heap %s", ErrCorrupt, order, blocks, region)
		}
		for _, other := range seen {
			if blocks.Overlaps(other) {
				return fmt.Errorf("%w: order %d blocks %s overlap %s", ErrCorrupt, order, blocks, other)
			}
		}
		seen = append(seen, blocks)
	}
	return nil
}
