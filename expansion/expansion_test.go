package expansion_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/localref"
	"github.com/colpool/colpool/status"
)

func tag(poolID, subpoolID, index uint16) expansion.Tag {
	return expansion.NewTag(poolID, subpoolID, index, localref.Ref{IsLongRef: true, Index: 1})
}

func TestCompressExpandRoundTrip(t *testing.T) {
	tbl := expansion.NewTable(16)
	k := tag(1, 0, 5)

	require.NoError(t, tbl.Compress(k, 123))
	got, err := tbl.Expand(k)
	require.NoError(t, err)
	require.Equal(t, uint32(123), got)
}

func TestCompressOverwritesExistingKey(t *testing.T) {
	tbl := expansion.NewTable(16)
	k := tag(1, 0, 5)

	require.NoError(t, tbl.Compress(k, 1))
	require.NoError(t, tbl.Compress(k, 2))
	require.Equal(t, 1, tbl.Len())

	got, err := tbl.Expand(k)
	require.NoError(t, err)
	require.Equal(t, uint32(2), got)
}

func TestDeleteThenExpandReturnsRefNotFound(t *testing.T) {
	tbl := expansion.NewTable(16)
	k := tag(1, 0, 5)

	require.NoError(t, tbl.Compress(k, 42))
	tbl.Delete(k)

	_, err := tbl.Expand(k)
	require.ErrorIs(t, err, status.ErrRefNotFound)
}

func TestExpandUnknownKeyReturnsRefNotFound(t *testing.T) {
	tbl := expansion.NewTable(16)
	_, err := tbl.Expand(tag(9, 9, 9))
	require.ErrorIs(t, err, status.ErrRefNotFound)
}

func TestCapacityAlwaysPowerOfTwo(t *testing.T) {
	tbl := expansion.NewTable(3)
	require.True(t, isPowerOfTwo(tbl.Cap()))

	for i := uint16(0); i < 200; i++ {
		require.NoError(t, tbl.Compress(tag(1, 0, i), uint32(i)))
		require.True(t, isPowerOfTwo(tbl.Cap()))
	}
}

func TestLiveCountNeverExceedsCapacity(t *testing.T) {
	tbl := expansion.NewTable(16)
	for i := uint16(0); i < 100; i++ {
		require.NoError(t, tbl.Compress(tag(1, 0, i), uint32(i)))
		if i%2 == 0 {
			tbl.Delete(tag(1, 0, i))
		}
	}
	require.LessOrEqual(t, tbl.Len(), tbl.Cap())
}

func TestDeleteAllForPoolRemovesOnlyMatchingPool(t *testing.T) {
	tbl := expansion.NewTable(16)
	require.NoError(t, tbl.Compress(tag(1, 0, 1), 10))
	require.NoError(t, tbl.Compress(tag(2, 0, 1), 20))

	tbl.DeleteAllForPool(1)

	_, err := tbl.Expand(tag(1, 0, 1))
	require.ErrorIs(t, err, status.ErrRefNotFound)

	got, err := tbl.Expand(tag(2, 0, 1))
	require.NoError(t, err)
	require.Equal(t, uint32(20), got)
}

func TestHash64IsDeterministic(t *testing.T) {
	require.Equal(t, expansion.Hash64(42), expansion.Hash64(42))
	require.NotEqual(t, expansion.Hash64(42), expansion.Hash64(43))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
