package utils

import (
	"crypto/rand"
	"fmt"
)

// base34 drops the easily confused O and I
const tokenAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// largest multiple of len(tokenAlphabet) that fits a byte; bytes above it are rejected
const tokenRejectAbove = 256 - 256%len(tokenAlphabet)

// NewToken returns a random token of length characters from the base34 alphabet.
func NewToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid length: %d", length)
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
