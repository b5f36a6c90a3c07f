package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestTieBreakerHashLayout(t *testing.T) {
	want := blake2b.Sum512(append([]byte("Alice"), 7, 0, 0, 0, 0, 0, 0, 0))
	require.Equal(t, want, TieBreakerHash("Alice", 7))
}

func TestTieBreakerHashDependsOnVotes(t *testing.T) {
	a := TieBreakerHash("Alice", 1)
	b := TieBreakerHash("Alice", 2)
	require.False(t, bytes.Equal(a[:], b[:]))
	require.Len(t, Hex64(a), 128)
}

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex(" 01 02\nff ")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 0xff}, b)

	_, err = DecodeHex("")
	require.Error(t, err)
	_, err = DecodeHex("zz")
	require.Error(t, err)
}

func TestContentID(t *testing.T) {
	a := ContentID([]byte{1, 2, 3})
	require.Len(t, a, 32)
	require.Equal(t, a, ContentID([]byte{1, 2, 3}))
	require.NotEqual(t, a, ContentID([]byte{1, 2, 4}))
}
