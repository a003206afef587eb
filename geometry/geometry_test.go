package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/typetable"
)

func newEightByteRuntime(t *testing.T) (*geometry.Runtime, uint16) {
	t.Helper()
	table, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 8},
	})
	require.NoError(t, err)
	return geometry.NewRuntime(table, nil), 1
}

func TestHandlePackUnpackRoundTrip(t *testing.T) {
	h := geometry.Handle{
		TypeID:     7,
		SubpoolID:  3,
		PoolID:     42,
		Index:      1000,
		Full:       true,
		IsExtended: false,
		GCState:    geometry.StateLive,
	}
	got := geometry.UnpackHandle(h.Pack())
	require.Equal(t, h, got)
}

func TestTopNibbleRoundTrip(t *testing.T) {
	h := geometry.Handle{}
	for n := uint8(0); n < 16; n++ {
		got := h.WithTopNibble(n)
		require.Equal(t, n, got.TopNibble())
	}
}

func TestAllocExactlyOnePageStaysInOneSubpool(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	_, err = p.Grow(geometry.PAGE)
	require.NoError(t, err)
	require.Equal(t, 1, p.SubpoolCount())
	require.True(t, p.Full())

	_, err = p.Grow(1)
	require.NoError(t, err)
	require.Equal(t, 2, p.SubpoolCount())
	require.False(t, p.Full())
}

func TestShrinkUnmapsTrailingSubpool(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	_, err = p.Grow(geometry.PAGE + 10)
	require.NoError(t, err)
	require.Equal(t, 2, p.SubpoolCount())

	require.NoError(t, p.Shrink(10))
	require.Equal(t, 1, p.SubpoolCount())
}

func TestShrinkNeverUnmapsInitialSubpool(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	_, err = p.Grow(5)
	require.NoError(t, err)
	require.NoError(t, p.Shrink(5))
	require.Equal(t, 1, p.SubpoolCount())
	require.Equal(t, uint64(0), p.Population())
}

func TestFieldBytesRoundTrip(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	h, err := p.Alloc()
	require.NoError(t, err)
	abs := p.AbsIndex(h)

	buf := p.FieldBytes(abs, 0)
	require.Len(t, buf, 8)
	copy(buf, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	got := p.FieldBytes(abs, 0)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestLogicalFieldAddressWithinMappedRange(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	h, err := p.Alloc()
	require.NoError(t, err)
	abs := p.AbsIndex(h)

	addr := p.LogicalFieldAddress(abs, 0)
	lo, hi := p.MappedRange()
	require.GreaterOrEqual(t, addr, lo)
	require.Less(t, addr, hi)
}

func TestChecksumChangesWithData(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	h, err := p.Alloc()
	require.NoError(t, err)
	before := p.Checksum()

	buf := p.FieldBytes(p.AbsIndex(h), 0)
	buf[0] = 0xFF
	after := p.Checksum()

	require.NotEqual(t, before, after)
}

func TestRuntimeDestroyClearsHandle(t *testing.T) {
	rt, typeID := newEightByteRuntime(t)
	p, err := rt.CreatePool(typeID)
	require.NoError(t, err)

	require.NoError(t, rt.Destroy(p.ID()))
	_, err = rt.Get(p.ID())
	require.Error(t, err)
}
