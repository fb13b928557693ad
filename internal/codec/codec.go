// Package codec implements the vault's single AEAD primitive: AES-256-GCM with
// a 96-bit random IV and a 128-bit tag. Every other component — key wrapping,
// panic verifiers, backup archives — builds its ciphertext frames on top of
// this package. This is AUDIT-CRITICAL code: the wire layout and algorithm
// choice must not change without a format-version bump.
package codec

import (
	"crypto/aes"
	"crypto/cipher"

	"vaultcore/internal/secret"
	"vaultcore/internal/vaulterr"
)

// IVSize is the AES-GCM nonce size used for every frame produced here.
const IVSize = 12

// TagSize is the AES-GCM authentication tag size appended to every frame.
const TagSize = 16

// KeySize is the only key size this codec accepts (256-bit).
const KeySize = 32

// MinFrameSize is the smallest a valid frame can be: an empty-plaintext
// encryption still produces IV‖tag (28 bytes).
const MinFrameSize = IVSize + TagSize

// Encrypt seals plaintext under key with associated data ad, returning
// IV‖CT where CT includes the appended GCM tag. plaintext may be empty; ad
// may be empty. Fails only if the key is the wrong size, the RNG fails, or
// the plaintext exceeds the GCM maximum message size.
func Encrypt(plaintext, key, ad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv, err := secret.Random(IVSize)
	if err != nil {
		return nil, vaulterr.NewCryptoError("rand", err)
	}

	// Seal appends the ciphertext+tag to the first argument; passing iv as
	// the destination makes the returned slice IV‖CT without a separate
	// concatenation step.
	frame := aead.Seal(iv, iv, plaintext, ad)
	return frame, nil
}

// Decrypt opens a frame produced by Encrypt, verifying the tag over the
// ciphertext and ad before returning any plaintext. Returns vaulterr.Malformed
// if frame is shorter than MinFrameSize, or vaulterr.Tamper if the tag does
// not verify (covers ciphertext tamper, IV tamper, and ad mismatch alike).
// Never returns a partial plaintext alongside an error.
func Decrypt(frame, key, ad []byte) ([]byte, error) {
	if len(frame) < MinFrameSize {
		return nil, vaulterr.Malformed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv, ct := frame[:IVSize], frame[IVSize:]
	plaintext, err := aead.Open(nil, iv, ct, ad)
	if err != nil {
		return nil, vaulterr.Tamper
	}
	return plaintext, nil
}

// Zeroize overwrites buf with zeros, preventing the compiler from eliding the
// write. Safe to call on a nil or empty slice.
func Zeroize(buf []byte) {
	secret.Zero(buf)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, vaulterr.NewCryptoError("aes-gcm", vaulterr.KDFParamsInvalid)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, vaulterr.NewCryptoError("aes-gcm", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vaulterr.NewCryptoError("aes-gcm", err)
	}
	return aead, nil
}
