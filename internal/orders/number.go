package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Crockford base32: no I, L, O or U, so numbers survive being read aloud.
const numberAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const numberSuffixLen = 6

// NewOrderNumber produces a human-facing order number like SO-20260828-7F3KQX.
// Uniqueness is enforced by the database; collisions are retried by the caller.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	suffix := make([]byte, numberSuffixLen)
	for i, b := range buf {
		suffix[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("SO-%s-%s", now.UTC().Format("20060102"), suffix), nil
}
