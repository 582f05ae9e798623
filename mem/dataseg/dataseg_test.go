package dataseg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warfish/bootleg/internal/check"
	"github.com/warfish/bootleg/mem"
)

const testBase = mem.Addr(0xD0000)

func newTestSegment(t testing.TB, size uint64, opts ...Option) *Allocator {
	t.Helper()
	m, err := mem.FromBytes(mem.Region{Base: testBase, Size: size}, make([]byte, size))
	require.NoError(t, err)
	a, err := New(m, opts...)
	require.NoError(t, err)
	a.Init()
	return a
}

// catchFatal runs fn and returns the *FatalError it aborted with, if any.
func catchFatal(fn func()) (fe *FatalError) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok || !errors.As(err, &fe) {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

func TestNew_Validation(t *testing.T) {
	m, err := mem.FromBytes(mem.Region{Base: testBase + 2, Size: 64}, make([]byte, 64))
	require.NoError(t, err)
	_, err = New(m)
	require.ErrorIs(t, err, ErrMisaligned)

	m, err = mem.FromBytes(mem.Region{Base: testBase, Size: 4}, make([]byte, 4))
	require.NoError(t, err)
	_, err = New(m)
	require.ErrorIs(t, err, ErrTooSmall, "a 32-bit region must exceed one word")

	m, err = mem.FromBytes(mem.Region{Base: testBase + 4, Size: 64}, make([]byte, 64))
	require.NoError(t, err)
	_, err = New(m, WithWord(mem.Word64))
	require.ErrorIs(t, err, ErrMisaligned, "64-bit words need 8-byte alignment")

	_, err = New(m, WithWord(mem.Word(3)))
	require.ErrorIs(t, err, mem.ErrBadWord)
}

func TestInit_ReservesCursorWord(t *testing.T) {
	a := newTestSegment(t, 256)

	assert.Equal(t, uint64(4), a.Used(), "cursor word consumes the first 4 bytes")
	assert.Equal(t, []byte{4, 0, 0, 0}, a.Memory().Bytes()[:4], "cursor is stored in the region")

	p := a.Alloc(1)
	assert.Equal(t, testBase+4, p, "first allocation follows the cursor word")
}

func TestAlloc_Alignment(t *testing.T) {
	for _, w := range []mem.Word{mem.Word32, mem.Word64} {
		t.Run(w.String(), func(t *testing.T) {
			a := newTestSegment(t, 1024, WithWord(w))
			for _, size := range []uint64{1, 3, 5, 7, 9, 13, 17, 0, 2} {
				p := a.Alloc(size)
				assert.Zero(t, uint64(p)%w.Bytes(), "Alloc(%d) = %s not aligned", size, p)
				assert.Zero(t, a.Used()%w.Bytes())
			}
		})
	}
}

func TestAlloc_Monotonic(t *testing.T) {
	a := newTestSegment(t, 4096)

	sizes := []uint64{13, 1, 64, 7, 100, 4, 33}
	var prev mem.Addr
	var prevSize uint64
	for i, size := range sizes {
		p := a.Alloc(size)
		if i > 0 {
			assert.Greater(t, p, prev, "addresses strictly increase")
			assert.GreaterOrEqual(t, uint64(p), uint64(prev)+a.Word().Align(prevSize),
				"allocation %d overlaps its predecessor", i)
		}
		assert.True(t, a.Memory().Region().Contains(p))
		prev, prevSize = p, size
	}
}

// Zero-size requests return the current cursor without advancing it, so two
// of them share an address.
func TestAlloc_ZeroSizeDoesNotAdvance(t *testing.T) {
	a := newTestSegment(t, 64)
	p1 := a.Alloc(0)
	p2 := a.Alloc(0)
	assert.Equal(t, p1, p2)
}

func TestAlloc_ExhaustionIsFatal(t *testing.T) {
	a := newTestSegment(t, 64)

	// 4 (cursor) + 56 = 60 < 64: fits.
	require.Nil(t, catchFatal(func() { a.Alloc(56) }))

	// 60 + 4 = 64 reaches capacity: fatal.
	fe := catchFatal(func() { a.Alloc(1) })
	require.NotNil(t, fe)
	assert.ErrorIs(t, fe, ErrExhausted)
	assert.Equal(t, uint64(60), fe.Cursor)
	assert.Equal(t, uint64(1), fe.Requested)
	assert.Equal(t, uint64(60), a.Used(), "failed allocation must not move the cursor")
}

func TestAlloc_ExactFillIsFatal(t *testing.T) {
	a := newTestSegment(t, 64)
	fe := catchFatal(func() { a.Alloc(60) })
	require.NotNil(t, fe, "cursor reaching capacity is fatal")
}

func TestAlloc_OverflowIsFatal(t *testing.T) {
	a := newTestSegment(t, 64)
	fe := catchFatal(func() { a.Alloc(^uint64(0)) })
	require.NotNil(t, fe)
}

func TestWithAbort(t *testing.T) {
	var got error
	sentinel := errors.New("halted")
	a := newTestSegment(t, 32, WithAbort(func(err error) {
		got = err
		panic(sentinel)
	}))

	defer func() {
		require.Equal(t, sentinel, recover())
		require.ErrorIs(t, got, ErrExhausted)
	}()
	a.Alloc(64)
}

func TestScrub_ReinitializesCursor(t *testing.T) {
	a := newTestSegment(t, 128)
	first := a.Alloc(16)
	a.Alloc(32)
	require.Equal(t, uint64(0), a.Generation())

	a.Scrub()

	assert.Equal(t, uint64(1), a.Generation())
	assert.Equal(t, uint64(4), a.Used(), "scrub re-reserves the cursor word")
	for i, b := range a.Memory().Bytes()[4:] {
		require.Zero(t, b, "byte %d not scrubbed", i+4)
	}

	again := a.Alloc(16)
	assert.Equal(t, first, again, "allocation restarts right after the cursor word")
	assert.NotEqual(t, testBase, again, "cursor word is never handed out")
}

func TestAvailable(t *testing.T) {
	a := newTestSegment(t, 64)
	// 64 - 4 (cursor) - 1 (cursor must stay below size), word-aligned down.
	assert.Equal(t, uint64(56), a.Available())
	a.Alloc(10)
	assert.Equal(t, uint64(44), a.Available())
}

func TestAvailable_IsLargestAllocation(t *testing.T) {
	for _, w := range []mem.Word{mem.Word32, mem.Word64} {
		a := newTestSegment(t, 128, WithWord(w))
		a.Alloc(13)

		n := a.Available()
		require.Positive(t, n)
		require.Nil(t, catchFatal(func() { a.Alloc(n) }), "Alloc(Available()) must succeed (%s)", w)
		assert.Zero(t, a.Available())

		fe := catchFatal(func() { a.Alloc(1) })
		require.NotNil(t, fe, "region is full (%s)", w)
	}
}

func TestInit_TwiceAsserts(t *testing.T) {
	if !check.Enabled {
		t.Skip("assertions compiled out")
	}
	a := newTestSegment(t, 64)
	p := a.Alloc(8)

	var got any
	func() {
		defer func() { got = recover() }()
		a.Init()
	}()
	ae, ok := got.(*check.AssertionError)
	require.True(t, ok, "second Init must assert, got %v", got)
	assert.Equal(t, "dataseg initialized once", ae.Cond)
	assert.Equal(t, uint64(12), a.Used(), "cursor untouched by the rejected Init")
	assert.Equal(t, p.Add(8), a.Alloc(4))
}

func TestAlloc_BeforeInitAsserts(t *testing.T) {
	if !check.Enabled {
		t.Skip("assertions compiled out")
	}
	m, err := mem.FromBytes(mem.Region{Base: testBase, Size: 64}, make([]byte, 64))
	require.NoError(t, err)
	a, err := New(m)
	require.NoError(t, err)

	defer func() {
		ae, ok := recover().(*check.AssertionError)
		require.True(t, ok, "Alloc before Init must trip an assertion")
		assert.Equal(t, "dataseg initialized", ae.Cond)
	}()
	a.Alloc(4)
}
