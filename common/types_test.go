package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyOfPadsWithZeros(t *testing.T) {
	k := KeyOf([]byte("ab"))
	require.Equal(t, byte('a'), k[0])
	require.Equal(t, byte('b'), k[1])
	for _, b := range k[2:] {
		require.Equal(t, byte(0), b)
	}
}

func TestKeyOfTruncatesOverlongInput(t *testing.T) {
	long := make([]byte, KeySize*2)
	for i := range long {
		long[i] = byte(i)
	}
	k := KeyOf(long)
	require.Equal(t, long[:KeySize], k[:])
}

func TestKeyCompare(t *testing.T) {
	a := KeyOf([]byte("aaa"))
	b := KeyOf([]byte("bbb"))

	require.Negative(t, a.Compare(b))
	require.Positive(t, b.Compare(a))
	require.Zero(t, a.Compare(a))
}
