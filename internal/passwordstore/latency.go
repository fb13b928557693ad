package passwordstore

import (
	"crypto/rand"
	"math/big"
	"time"
)

// tBase is the floor on classify's total wall-clock duration. tJitter bounds
// the uniformly sampled addition on top of it. Together they make classify's
// timing statistically indistinguishable across MASTER/DECOY/PANIC/INVALID
// inputs: the KDF work that would otherwise vary by branch is folded inside
// this floor by running all three derivations unconditionally, every call.
const (
	tBase   = 900 * time.Millisecond
	tJitter = 300 * time.Millisecond
)

// enforceLatency sleeps however long is needed so that the interval since
// start is at least tBase, then adds a uniformly sampled jitter on top.
func enforceLatency(start time.Time) {
	elapsed := time.Since(start)
	if remaining := tBase - elapsed; remaining > 0 {
		time.Sleep(remaining)
	}
	time.Sleep(randomJitter())
}

// randomJitter draws a uniform duration in [0, tJitter). A CSPRNG is used
// here not because the jitter itself is a secret, but because it is the
// natural source already in scope for a package that otherwise only ever
// reaches for crypto/rand.
func randomJitter() time.Duration {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(tJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
