package secret

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Random returns n cryptographically secure random bytes from the system CSPRNG.
// It sanity-checks the output is not all-zero, which would indicate a broken
// (not merely unlucky — the odds are 2^-(8n)) entropy source rather than reject
// a legitimately rare value.
func Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("fatal crypto/rand error: %w", err)
	}

	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, errors.New("fatal crypto/rand error: produced zero bytes")
	}

	return b, nil
}
