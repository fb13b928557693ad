package kdf

import (
	"crypto/sha512"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"vaultcore/internal/secret"
	"vaultcore/internal/vaulterr"
)

// argon2Available reports whether the Argon2id path can be used. In this Go
// build it is always linked in (golang.org/x/crypto/argon2 is a pure-Go
// implementation with no OS/CPU-feature gate), so this is always true; the
// hook exists so Derive's KDF_UNAVAILABLE path can be reached by swapping it
// out, without removing the dependency. No test in this package swaps it.
var argon2Available = func() bool { return true }

// Derive produces params.OutputLen key bytes from pw and salt. KdfParams
// itself carries no salt — callers store salt alongside the params record
// (WrappedKey, PanicVerifier) and pass it in here explicitly.
func Derive(pw *secret.Password, salt []byte, params KdfParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch params.Algorithm {
	case Argon2ID:
		if !argon2Available() {
			return nil, vaulterr.KDFUnavailable
		}
		key := argon2.IDKey(pw.Bytes(), salt, params.TimeCost, params.MemoryKiB, uint8(params.Parallelism), uint32(params.OutputLen))
		return sanityCheck(key)
	case PBKDF2HMACSHA512:
		key := pbkdf2.Key(pw.Bytes(), salt, int(params.PBKDF2Iters), int(params.OutputLen), sha512.New)
		return sanityCheck(key)
	default:
		return nil, vaulterr.KDFUnavailable
	}
}

// sanityCheck rejects an all-zero key, which would indicate a broken
// derivation (e.g. a library bug) rather than legitimately deriving the value
// zero — odds of that are negligible for any real output length.
func sanityCheck(key []byte) ([]byte, error) {
	allZero := true
	for _, b := range key {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, vaulterr.NewCryptoError("argon2", vaulterr.KDFUnavailable)
	}
	return key, nil
}
