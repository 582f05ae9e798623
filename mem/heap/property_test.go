package heap

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warfish/bootleg/mem"
)

type liveAlloc struct {
	addr mem.Addr
	size uint64 // usable bytes
}

// checkDisjoint fails when any two live allocations share a byte.
func checkDisjoint(t *testing.T, live map[mem.Addr]uint64, step int) {
	t.Helper()
	all := make([]liveAlloc, 0, len(live))
	for a, n := range live {
		all = append(all, liveAlloc{a, n})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].addr < all[j].addr })
	for i := 1; i < len(all); i++ {
		prev := all[i-1]
		require.LessOrEqual(t, uint64(prev.addr)+prev.size, uint64(all[i].addr),
			"step %d: %s+%d overlaps %s", step, prev.addr, prev.size, all[i].addr)
	}
}

// checkOccupancy compares bitmap occupancy with the allocations we hold.
func checkOccupancy(t *testing.T, h *Heap, live map[mem.Addr]uint64, step int) {
	t.Helper()
	used := make(map[uint8]uint32)
	for a := range live {
		used[orderOf(t, h, a)]++
	}
	for o := h.MinOrder(); o <= h.MaxOrder(); o++ {
		ar := h.Arena(o)
		if ar == nil {
			continue
		}
		require.Equal(t, used[o], ar.Len()-ar.FreeBlocks(), "step %d: order %d occupancy", step, o)
	}
}

// TestProperty_RandomAllocFree performs random alloc/free across every size
// class and validates disjointness and bitmap occupancy after each step.
func TestProperty_RandomAllocFree(t *testing.T) {
	for _, w := range []mem.Word{mem.Word32, mem.Word64} {
		t.Run(w.String(), func(t *testing.T) {
			h, _ := newTestHeap(t, testHeapConfig{size: 8 << 10, minOrder: 6, maxOrder: 10, word: w})
			rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
			live := make(map[mem.Addr]uint64)
			limit := int(uint64(1)<<h.MaxOrder() - h.HeaderSize())

			for step := range 3000 {
				if rng.Intn(3) != 0 || len(live) == 0 {
					size := uint64(rng.Intn(limit))
					p, err := h.Alloc(size)
					if err != nil {
						require.True(t, errors.Is(err, ErrNoSpace), "step %d: %v", step, err)
						order := max(OrderFor(size+h.HeaderSize()), h.MinOrder())
						require.Zero(t, h.Arena(order).FreeBlocks(),
							"step %d: ErrNoSpace only when order %d is exhausted", step, order)
						continue
					}
					require.Zero(t, uint64(p)%w.Bytes())
					n, err := h.Usable(p)
					require.NoError(t, err)
					require.GreaterOrEqual(t, n, size)
					_, dup := live[p]
					require.False(t, dup, "step %d: %s handed out twice", step, p)
					live[p] = n
				} else {
					for p := range live {
						h.Free(p)
						delete(live, p)
						break
					}
				}

				checkDisjoint(t, live, step)
				checkOccupancy(t, h, live, step)
			}
			require.NoError(t, h.Verify())

			for p := range live {
				h.Free(p)
			}
			st := h.Stats()
			assert.Equal(t, st.TotalBlocks, st.FreeBlocks, "everything returns to the free state")
		})
	}
}

// TestProperty_PayloadIsolation writes a distinct pattern into every live
// allocation and checks none was clobbered by a neighbour.
func TestProperty_PayloadIsolation(t *testing.T) {
	h := newReferenceHeap(t)
	rng := rand.New(rand.NewSource(7))

	live := make(map[mem.Addr]byte)
	for i := range 400 {
		p, err := h.Alloc(uint64(rng.Intn(1000)))
		if err != nil {
			continue
		}
		b, err := h.Bytes(p)
		require.NoError(t, err)
		fill := byte(i)
		for j := range b {
			b[j] = fill
		}
		live[p] = fill
	}

	for p, fill := range live {
		b, err := h.Bytes(p)
		require.NoError(t, err)
		for j, v := range b {
			require.Equal(t, fill, v, "allocation %s byte %d clobbered", p, j)
		}
		assert.Equal(t, uint64(orderOf(t, h, p)), uint64(OrderFor(uint64(len(b))+h.HeaderSize())),
			"header survived payload writes")
	}
}

// TestAllocationDeterminism verifies that the same sequence of calls yields
// identical addresses across runs.
func TestAllocationDeterminism(t *testing.T) {
	sequence := []uint64{10, 100, 200, 500, 1000, 60, 61, 0}

	run := func() []mem.Addr {
		h := newReferenceHeap(t)
		var out []mem.Addr
		for i, size := range sequence {
			p, err := h.Alloc(size)
			require.NoError(t, err)
			out = append(out, p)
			if i%3 == 2 {
				h.Free(out[i-1])
			}
		}
		return out
	}

	assert.Equal(t, run(), run(), "allocations must be deterministic")
}
