package crypto

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// TieBreakerHash is BLAKE2b-512 over the candidate ID followed by its
// delegated vote count as a little-endian u64.
func TieBreakerHash(id string, votes uint64) [64]byte {
	buf := make([]byte, 0, len(id)+8)
	buf = append(buf, id...)
	buf = binary.LittleEndian.AppendUint64(buf, votes)
	return blake2b.Sum512(buf)
}

func Hex64(h [64]byte) string {
	return hex.EncodeToString(h[:])
}

// ContentID names an input by the first 16 bytes of its BLAKE2b-256 digest.
func ContentID(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
