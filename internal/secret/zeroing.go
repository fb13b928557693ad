// Package secret holds the vault's most sensitive values: password buffers and
// key material that must be overwritten on every exit path. Nothing in this
// package is specific to a role (master/decoy/panic) or a wire format; it is
// the leaf primitive every other vault package builds on.
package secret

import "crypto/subtle"

// Zero overwrites b with zeros in place. It uses subtle.ConstantTimeCopy from a
// zero-valued source so the compiler cannot prove the write is dead and elide it.
//
// Go's garbage collector may have already copied b's backing array elsewhere
// (stack growth, GC compaction on some ports); Zero reduces the window during
// which key material is recoverable from memory, it does not guarantee erasure.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroAll zeros every slice passed to it. Convenient for cleaning up a batch of
// related buffers (KEK, DataKey, MAC subkey, ...) in one defer.
func ZeroAll(slices ...[]byte) {
	for _, s := range slices {
		Zero(s)
	}
}
