package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/mem"
	"github.com/warfish/bootleg/mem/dataseg"
)

const (
	segBase  = mem.Addr(0xD0000)
	heapBase = mem.Addr(0xC0000)
)

func newTestSegment(t testing.TB, size uint64, w mem.Word) *dataseg.Allocator {
	t.Helper()
	m, err := mem.FromBytes(mem.Region{Base: segBase, Size: size}, make([]byte, size))
	require.NoError(t, err)
	seg, err := dataseg.New(m, dataseg.WithWord(w))
	require.NoError(t, err)
	seg.Init()
	return seg
}

func newTestArena(t testing.TB, size uint64, order uint8) (*Arena, *dataseg.Allocator) {
	t.Helper()
	seg := newTestSegment(t, 4096, mem.Word32)
	a, ok := New(seg, heapBase, size, order)
	require.True(t, ok)
	return a, seg
}

func TestNew_Geometry(t *testing.T) {
	a, seg := newTestArena(t, 1024, 6)

	assert.Equal(t, uint32(16), a.Len())
	assert.Equal(t, uint64(64), a.BlockSize())
	assert.Equal(t, uint32(16), a.FreeBlocks())
	assert.Equal(t, mem.Region{Base: heapBase, Size: 1024}, a.Blocks())

	// Header lives in the segment: 4 (blocks) + 4 (nblocks) + 1 (order) + 2 (bitmap).
	assert.True(t, seg.Memory().Region().Contains(a.Header()))
	assert.Equal(t, uint64(4)+12, seg.Used(), "cursor word + aligned 11-byte header")
}

func TestNew_PartialBlockDiscarded(t *testing.T) {
	a, _ := newTestArena(t, 1000, 6)
	assert.Equal(t, uint32(15), a.Len(), "1000 >> 6 = 15")
}

func TestNew_NoBlocks(t *testing.T) {
	seg := newTestSegment(t, 256, mem.Word32)
	used := seg.Used()

	a, ok := New(seg, heapBase, 63, 6)
	assert.False(t, ok)
	assert.Nil(t, a)
	assert.Equal(t, used, seg.Used(), "no header is allocated for an empty arena")
}

func TestNew_HeaderLayout(t *testing.T) {
	seg := newTestSegment(t, 256, mem.Word32)
	a, ok := New(seg, heapBase+0x200, 640, 7)
	require.True(t, ok)

	hdr, err := seg.Memory().Slice(a.Header(), HeaderSize(mem.Word32)+1)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x00, 0x02, 0x0C, 0x00, // blocks = 0xC0200
		0x05, 0x00, 0x00, 0x00, // nblocks = 5
		0x07,                   // order
		0x1F,                   // 5 free bits, 3 padding bits occupied
	}, hdr)
}

func TestAlloc_LeftmostFirst(t *testing.T) {
	a, _ := newTestArena(t, 1024, 6)

	for i := range uint64(16) {
		p, ok := a.Alloc(64)
		require.True(t, ok)
		assert.Equal(t, heapBase.Add(i*64), p, "block %d", i)
	}
	assert.Zero(t, a.FreeBlocks())
}

func TestAlloc_Exhaustion(t *testing.T) {
	a, _ := newTestArena(t, 256, 6)

	var got []mem.Addr
	for range 4 {
		p, ok := a.Alloc(10)
		require.True(t, ok)
		got = append(got, p)
	}

	p, ok := a.Alloc(10)
	assert.False(t, ok)
	assert.Equal(t, mem.Nil, p)

	// Exhaustion leaves the bitmap intact: a freed block comes back.
	a.Free(got[2])
	p, ok = a.Alloc(10)
	require.True(t, ok)
	assert.Equal(t, got[2], p)
}

func TestFree_RoundTrip(t *testing.T) {
	a, _ := newTestArena(t, 512, 6)

	p1, _ := a.Alloc(64)
	p2, _ := a.Alloc(64)
	assert.False(t, a.IsFree(p1))

	a.Free(p1)
	assert.True(t, a.IsFree(p1), "occupied -> free")

	p3, ok := a.Alloc(64)
	require.True(t, ok)
	assert.Equal(t, p1, p3, "freed block is reused first")
	assert.False(t, a.IsFree(p3), "free -> occupied")
	assert.NotEqual(t, p2, p3)
}

func TestFree_InteriorPointer(t *testing.T) {
	a, _ := newTestArena(t, 512, 6)
	p, _ := a.Alloc(64)
	a.Free(p + 4)
	assert.True(t, a.IsFree(p), "any address inside the block frees it")
}

func TestFree_OutOfRangeIgnored(t *testing.T) {
	a, _ := newTestArena(t, 256, 6)
	for range 4 {
		a.Alloc(64)
	}

	a.Free(heapBase - 1)
	a.Free(heapBase + 256)
	a.Free(mem.Addr(^uint64(0)))
	assert.Zero(t, a.FreeBlocks(), "stray frees must not touch the bitmap")
}

func TestFree_DoubleFreeCounted(t *testing.T) {
	a, _ := newTestArena(t, 256, 6)
	p, _ := a.Alloc(64)

	a.Free(p)
	a.Free(p)

	st := a.Stats()
	assert.Equal(t, uint64(1), st.DoubleFrees)
	assert.Equal(t, uint32(4), st.Free)
}

func TestAlloc_OversizeAsserts(t *testing.T) {
	if !check.Enabled {
		t.Skip("assertions compiled out")
	}
	a, _ := newTestArena(t, 256, 6)

	defer func() {
		_, ok := recover().(*check.AssertionError)
		require.True(t, ok, "oversize request must trip an assertion")
	}()
	a.Alloc(65)
}

func TestLoad_MatchesNew(t *testing.T) {
	for _, w := range []mem.Word{mem.Word32, mem.Word64} {
		t.Run(w.String(), func(t *testing.T) {
			seg := newTestSegment(t, 1024, w)
			a, ok := New(seg, heapBase, 2048, 8)
			require.True(t, ok)
			p, _ := a.Alloc(200)

			b, err := Load(seg, a.Header())
			require.NoError(t, err)
			assert.Equal(t, a.Order(), b.Order())
			assert.Equal(t, a.Len(), b.Len())
			assert.Equal(t, a.Blocks(), b.Blocks())
			assert.False(t, b.IsFree(p), "Load shares the bitmap stored in the segment")

			b.Free(p)
			assert.True(t, a.IsFree(p))
		})
	}
}

func TestLoad_BadHeader(t *testing.T) {
	seg := newTestSegment(t, 256, mem.Word32)
	zeroed := seg.Alloc(16)

	_, err := Load(seg, zeroed)
	require.ErrorIs(t, err, ErrBadHeader)

	_, err = Load(seg, segBase+1024)
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestStats(t *testing.T) {
	a, _ := newTestArena(t, 512, 7)
	a.Alloc(100)

	st := a.Stats()
	assert.Equal(t, uint8(7), st.Order)
	assert.Equal(t, uint64(128), st.BlockSize)
	assert.Equal(t, uint32(4), st.Blocks)
	assert.Equal(t, uint32(1), st.Used)
	assert.Equal(t, uint32(3), st.Free)
}
