// Package vaulterr provides the vault core's typed error taxonomy. Callers use
// errors.Is/errors.As against the sentinels below rather than string matching.
package vaulterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy fixed by the vault's error-handling design.
// Check with errors.Is(err, vaulterr.Tamper), etc.
var (
	// Tamper is returned when AEAD tag verification fails: ciphertext, IV, or
	// associated-data mismatch. The codec never returns partial plaintext.
	Tamper = errors.New("TAMPER: authentication failed")

	// Malformed is returned for frames shorter than the minimum size, bad
	// magic/version, or an invalid JSON manifest.
	Malformed = errors.New("MALFORMED: frame or record is structurally invalid")

	// KDFUnavailable is returned when neither Argon2id nor the PBKDF2 fallback
	// can be used in the current environment.
	KDFUnavailable = errors.New("KDF_UNAVAILABLE: no derivation algorithm available")

	// KDFParamsInvalid is returned when KdfParams fall outside documented ranges.
	KDFParamsInvalid = errors.New("KDF_PARAMS_INVALID: derivation parameters out of range")

	// CorruptStore is returned when a PasswordStoreFile is present but a
	// WrappedKey fails to decrypt for the role that classification selected.
	CorruptStore = errors.New("CORRUPT_STORE: wrapped key failed to decrypt")

	// PanicPhase1Failed is returned when the cryptographic-erasure phase of
	// PanicExecutor does not complete. The caller should retry; until this
	// phase succeeds, no erasure guarantee has been delivered.
	PanicPhase1Failed = errors.New("PANIC_PHASE1_FAILED: key material destruction did not complete")

	// IOError wraps underlying storage failures not otherwise classified.
	IOError = errors.New("IO_ERROR: underlying storage failure")

	// Cancelled is returned when a caller-requested cancellation was honored.
	Cancelled = errors.New("CANCELLED: operation cancelled")
)

// CryptoError wraps a failure from the codec or KDF with the operation name
// that triggered it ("rand", "argon2", "pbkdf2", "hkdf", "aes-gcm", ...).
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto %s failed", e.Op)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NewCryptoError constructs a CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// PhaseError records a PanicExecutor phase failure: which phase, which target
// path, and the underlying cause. Phases 2-4 record these without aborting;
// phase 1 raises one wrapped in PanicPhase1Failed.
type PhaseError struct {
	Phase  int
	Target string
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("panic phase %d (%s): %v", e.Phase, e.Target, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// NewPhaseError constructs a PhaseError.
func NewPhaseError(phase int, target string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Target: target, Err: err}
}

// StateError records a BackupCodec restore state-machine failure: which state
// the machine was in when it failed, and the cause of the failure.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("restore state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// NewStateError constructs a StateError.
func NewStateError(state string, err error) *StateError {
	return &StateError{State: state, Err: err}
}

// Wrap adds context to err while preserving it in the unwrap chain. A nil err
// passes through unchanged so call sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is is a thin re-export of errors.Is for call sites that only import vaulterr.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is a thin re-export of errors.As for call sites that only import vaulterr.
func As(err error, target any) bool { return errors.As(err, target) }
