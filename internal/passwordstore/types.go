// Package passwordstore implements the triple-credential authentication
// record: MASTER and DECOY each wrap a data-encryption key, PANIC stores only
// a verifier digest. classify runs all three candidate comparisons on every
// call and enforces a fixed total latency so a timing-side-channel observer
// cannot distinguish "wrong password" from "right password, wrong role" from
// "hit the panic credential".
package passwordstore

import (
	"vaultcore/internal/kdf"
)

// Role identifies which of the three stored credentials, if any, a password
// matched.
type Role int

const (
	RoleInvalid Role = iota
	RoleMaster
	RoleDecoy
	RolePanic
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "MASTER"
	case RoleDecoy:
		return "DECOY"
	case RolePanic:
		return "PANIC"
	default:
		return "INVALID"
	}
}

// Associated-data labels bound into the AEAD wrap of each DataKey. Binding
// the role into the ciphertext's AD means a WrappedKey copied from one role's
// on-disk slot to another fails TAMPER, not silent misuse.
const (
	adMaster = "MASTER-VMK"
	adDecoy  = "DECOY-DVMK"
)

// WrappedKey is a DataKey encrypted under a KEK derived from a password.
type WrappedKey struct {
	Salt   []byte
	Params kdf.KdfParams
	Frame  []byte // codec.Encrypt(dataKey, kek, ad) — IV‖CT
}

// PanicVerifier proves knowledge of the panic password without making any
// key recoverable: it stores only SHA-256 of the derived KEK.
type PanicVerifier struct {
	Salt   []byte
	Params kdf.KdfParams
	Digest []byte // SHA-256(kek), 32 bytes
}

// storeFormatVersion is the format-version byte persisted in every
// PasswordStoreFile. Bumped on any incompatible wire-layout change; readers
// hard-fail on a mismatch rather than guessing at a migration.
const storeFormatVersion = 1

// record is the full in-memory shape of a PasswordStoreFile: exactly three
// role entries plus the format version, matching the data model's invariant
// that a store never holds more or fewer than three roles.
type record struct {
	Version int
	Master  WrappedKey
	Decoy   WrappedKey
	Panic   PanicVerifier
}
