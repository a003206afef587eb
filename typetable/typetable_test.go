package typetable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/typetable"
)

func TestFlattenPrimitive(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 8},
	})
	require.NoError(t, err)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	require.Equal(t, 1, row.FieldCount)
	require.Equal(t, 8, row.TypeSize)
	require.Equal(t, 0, row.RefFieldCount)
}

func TestFlattenCompositeAssignsSequentialOffsets(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{
			TypeID: 1,
			Class:  typetable.Composite,
			Children: []typetable.Descriptor{
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.Primitive, PrimitiveSize: 4},
				{Class: typetable.Primitive, PrimitiveSize: 8},
			},
		},
	})
	require.NoError(t, err)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	require.Equal(t, 3, row.FieldCount)
	require.Equal(t, 1, row.RefFieldCount)
	require.Equal(t, 0, row.Fields[0].ByteOffset)
	require.Equal(t, typetable.LocalRefSize, row.Fields[1].ByteOffset)
	require.Equal(t, typetable.LocalRefSize+4, row.Fields[2].ByteOffset)
	require.Equal(t, typetable.LocalRefSize+4+8, row.TypeSize)
}

func TestRefFieldCountOnlyCountsLeadingLocalRefs(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{
			TypeID: 1,
			Class:  typetable.Composite,
			Children: []typetable.Descriptor{
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.Primitive, PrimitiveSize: 4},
				{Class: typetable.LocalRef, RefereeTypeID: 1}, // trailing, not counted
			},
		},
	})
	require.NoError(t, err)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	require.Equal(t, 2, row.RefFieldCount)
	require.Equal(t, 4, row.FieldCount)
}

func TestDuplicateTypeIDIsRejected(t *testing.T) {
	_, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 4},
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 8},
	})
	require.Error(t, err)
}

func TestZeroSizePrimitiveIsRejected(t *testing.T) {
	_, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 0},
	})
	require.Error(t, err)
}

func TestUnknownTypeLookupFails(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 4},
	})
	require.NoError(t, err)

	_, err = tbl.Row(99)
	require.Error(t, err)
}

func TestMustRowPanicsOnUnknownType(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Primitive, PrimitiveSize: 4},
	})
	require.NoError(t, err)

	require.Panics(t, func() { tbl.MustRow(99) })
}

func TestGlobalRefIsEightBytes(t *testing.T) {
	tbl, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.GlobalRef, RefereeTypeID: 1},
	})
	require.NoError(t, err)

	row, err := tbl.Row(1)
	require.NoError(t, err)
	require.Equal(t, typetable.GlobalRefSize, row.TypeSize)
}
