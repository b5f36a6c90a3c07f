package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
)

// DecodeHex decodes s, ignoring surrounding and embedded whitespace.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("decoded hex is empty")
	}
	return b, nil
}
