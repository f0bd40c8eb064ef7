// Package random generates the hex-encoded secrets used for password salts
// and raw reset tokens.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// Hex returns n random bytes as a lowercase hex string of length 2n.
func Hex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
