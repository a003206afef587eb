package localref_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/localref"
)

func TestZeroIsNull(t *testing.T) {
	require.True(t, localref.Zero.IsNull())
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []localref.Ref{
		{Index: 0, IsLongRef: false, GCState: 0},
		{Index: 4095, IsLongRef: false, GCState: 3},
		{Index: -4096, IsLongRef: false, GCState: 1},
		{Index: -1, IsLongRef: true, GCState: 2},
		{Index: 1, IsLongRef: true},
	}
	for _, c := range cases {
		got := localref.Unpack(c.Pack())
		require.Equal(t, c, got)
	}
}

func TestSignExtensionBoundaries(t *testing.T) {
	require.Equal(t, int16(4095), localref.Unpack(localref.Ref{Index: 4095}.Pack()).Index)
	require.Equal(t, int16(-4096), localref.Unpack(localref.Ref{Index: -4096}.Pack()).Index)
}

func TestIsNullOnlyForNearZero(t *testing.T) {
	require.True(t, localref.Ref{Index: 0, IsLongRef: false}.IsNull())
	require.False(t, localref.Ref{Index: 0, IsLongRef: true}.IsNull())
	require.False(t, localref.Ref{Index: 1, IsLongRef: false}.IsNull())
}
