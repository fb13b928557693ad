package passwordstore

import (
	"crypto/sha256"
	"crypto/subtle"
	"os"
	"sync"
	"time"

	"vaultcore/internal/codec"
	"vaultcore/internal/kdf"
	"vaultcore/internal/log"
	"vaultcore/internal/secret"
	"vaultcore/internal/vaulterr"
	"vaultcore/internal/vaultlock"
	"vaultcore/internal/vaultroot"
)

const dataKeySize = 32

// IsConfigured reports whether root already has a persisted PasswordStoreFile.
func IsConfigured(root vaultroot.Root) bool {
	_, err := os.Stat(root.PasswordStoreFile())
	return err == nil
}

// Create performs first-run setup: generates independent VMK/DVMK data keys,
// wraps them under MASTER/DECOY passwords, stores a verifier-only PANIC
// credential, and persists the result atomically. Returns KDF_PARAMS_INVALID
// wrapped errors are never expected here since Bench always returns validated
// params; any failure is a crypto or I/O error from the underlying primitive.
func Create(root vaultroot.Root, master, decoy, panicPw *secret.Password) error {
	unlock := vaultlock.Lock(root)
	defer unlock()

	params, err := kdf.Bench()
	if err != nil {
		return err
	}

	vmk, err := secret.Random(dataKeySize)
	if err != nil {
		return err
	}
	defer secret.Zero(vmk)

	dvmk, err := secret.Random(dataKeySize)
	if err != nil {
		return err
	}
	defer secret.Zero(dvmk)

	masterEntry, err := wrapDataKey(master, vmk, params, adMaster)
	if err != nil {
		return err
	}
	decoyEntry, err := wrapDataKey(decoy, dvmk, params, adDecoy)
	if err != nil {
		return err
	}
	panicEntry, err := makeVerifier(panicPw, params)
	if err != nil {
		return err
	}

	rec := record{Version: storeFormatVersion, Master: masterEntry, Decoy: decoyEntry, Panic: panicEntry}
	return atomicWrite(root.PasswordStoreFile(), rec.encode())
}

func wrapDataKey(pw *secret.Password, dataKey []byte, params kdf.KdfParams, ad string) (WrappedKey, error) {
	salt, err := secret.Random(int(params.SaltLen))
	if err != nil {
		return WrappedKey{}, err
	}
	kek, err := kdf.Derive(pw, salt, params)
	if err != nil {
		return WrappedKey{}, err
	}
	defer secret.Zero(kek)

	frame, err := codec.Encrypt(dataKey, kek, []byte(ad))
	if err != nil {
		return WrappedKey{}, err
	}
	return WrappedKey{Salt: salt, Params: params, Frame: frame}, nil
}

func makeVerifier(pw *secret.Password, params kdf.KdfParams) (PanicVerifier, error) {
	salt, err := secret.Random(int(params.SaltLen))
	if err != nil {
		return PanicVerifier{}, err
	}
	kek, err := kdf.Derive(pw, salt, params)
	if err != nil {
		return PanicVerifier{}, err
	}
	defer secret.Zero(kek)

	sum := sha256.Sum256(kek)
	return PanicVerifier{Salt: salt, Params: params, Digest: sum[:]}, nil
}

// Classification is the result of Classify: which role (if any) matched, and
// the unwrapped DataKey when the match was MASTER or DECOY. Key is nil for
// PANIC and INVALID.
type Classification struct {
	Role Role
	Key  []byte
}

// Classify tests pw against all three stored credentials and enforces the
// fixed total-latency contract: every candidate is derived and compared, in
// full, on every call — there is no early return on first match — and the
// wall-clock duration is always drawn from tBase + U(0, tJitter), so an
// external timing observer cannot distinguish INVALID from PANIC from a
// correct MASTER/DECOY password by latency alone.
//
// A PANIC match is reported here exactly as any other role; the policy that
// a caller must present it identically to INVALID belongs to the application
// layer consuming this result, not to this function's timing behavior.
func Classify(root vaultroot.Root, pw *secret.Password) (Classification, error) {
	start := time.Now()
	defer func() { enforceLatency(start) }()

	rec, err := loadRecord(root.PasswordStoreFile())
	if err != nil {
		return Classification{Role: RoleInvalid}, nil
	}

	// The three KDF derivations run concurrently, not sequentially: the
	// latency contract's floor is sized for one derivation's cost, and
	// running all three serially would make every classification take
	// roughly 3x a single KDF call, blowing well past tBase regardless of
	// which role (if any) matched.
	var masterKey, decoyKey []byte
	var masterOK, decoyOK, panicOK bool
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); masterKey, masterOK = tryUnwrap(pw, rec.Master, []byte(adMaster)) }()
	go func() { defer wg.Done(); decoyKey, decoyOK = tryUnwrap(pw, rec.Decoy, []byte(adDecoy)) }()
	go func() { defer wg.Done(); panicOK = tryVerify(pw, rec.Panic) }()
	wg.Wait()

	switch {
	case masterOK:
		secret.Zero(decoyKey)
		log.Debug("classify matched role", log.Role("MASTER"))
		return Classification{Role: RoleMaster, Key: masterKey}, nil
	case decoyOK:
		secret.Zero(masterKey)
		log.Debug("classify matched role", log.Role("DECOY"))
		return Classification{Role: RoleDecoy, Key: decoyKey}, nil
	case panicOK:
		secret.Zero(masterKey)
		secret.Zero(decoyKey)
		// Audit-only: the caller-visible return carries no marker that
		// distinguishes this from INVALID beyond the Role value itself,
		// which the application layer is responsible for not surfacing.
		log.Debug("classify matched role", log.Role("PANIC"))
		return Classification{Role: RolePanic}, nil
	default:
		secret.Zero(masterKey)
		secret.Zero(decoyKey)
		log.Debug("classify matched role", log.Role("INVALID"))
		return Classification{Role: RoleInvalid}, nil
	}
}

// tryUnwrap derives the KEK for entry and attempts to open its frame. It
// always runs to completion and never short-circuits based on an outer
// caller's state, satisfying the "no early return" requirement when called
// unconditionally for every candidate on every Classify invocation.
func tryUnwrap(pw *secret.Password, entry WrappedKey, ad []byte) (key []byte, ok bool) {
	kek, err := kdf.Derive(pw, entry.Salt, entry.Params)
	if err != nil {
		return nil, false
	}
	defer secret.Zero(kek)

	plaintext, err := codec.Decrypt(entry.Frame, kek, ad)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}

func tryVerify(pw *secret.Password, entry PanicVerifier) bool {
	kek, err := kdf.Derive(pw, entry.Salt, entry.Params)
	if err != nil {
		return false
	}
	defer secret.Zero(kek)

	sum := sha256.Sum256(kek)
	return subtle.ConstantTimeCompare(sum[:], entry.Digest) == 1
}

// Unwrap re-derives the KEK for role using the stored salt+params and opens
// the corresponding WrappedKey. Unlike Classify it makes no latency guarantee
// and is intended for a caller that has already classified pw and knows
// which role to target. Fails with CORRUPT_STORE if decryption does not
// verify — which including a wrong password for the given role, since this
// entry point does not search the other two roles for a match.
func Unwrap(root vaultroot.Root, role Role, pw *secret.Password) ([]byte, error) {
	rec, err := loadRecord(root.PasswordStoreFile())
	if err != nil {
		return nil, err
	}

	var entry WrappedKey
	var ad string
	switch role {
	case RoleMaster:
		entry, ad = rec.Master, adMaster
	case RoleDecoy:
		entry, ad = rec.Decoy, adDecoy
	default:
		return nil, vaulterr.Malformed
	}

	kek, err := kdf.Derive(pw, entry.Salt, entry.Params)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(kek)

	key, err := codec.Decrypt(entry.Frame, kek, []byte(ad))
	if err != nil {
		return nil, vaulterr.CorruptStore
	}
	return key, nil
}

// Rotate changes the password for role, re-deriving a fresh-salt KEK and
// re-wrapping the same DataKey (MASTER/DECOY) or replacing the verifier
// (PANIC), then persisting atomically. oldPw must unwrap/verify role or
// Rotate fails with CORRUPT_STORE without modifying anything on disk.
func Rotate(root vaultroot.Root, role Role, oldPw, newPw *secret.Password) error {
	unlock := vaultlock.Lock(root)
	defer unlock()

	rec, err := loadRecord(root.PasswordStoreFile())
	if err != nil {
		return err
	}

	switch role {
	case RoleMaster, RoleDecoy:
		entry, ad := rec.Master, adMaster
		if role == RoleDecoy {
			entry, ad = rec.Decoy, adDecoy
		}
		kek, err := kdf.Derive(oldPw, entry.Salt, entry.Params)
		if err != nil {
			return err
		}
		dataKey, err := codec.Decrypt(entry.Frame, kek, []byte(ad))
		secret.Zero(kek)
		if err != nil {
			return vaulterr.CorruptStore
		}
		defer secret.Zero(dataKey)

		fresh, err := wrapDataKey(newPw, dataKey, entry.Params, ad)
		if err != nil {
			return err
		}
		if role == RoleMaster {
			rec.Master = fresh
		} else {
			rec.Decoy = fresh
		}

	case RolePanic:
		kek, err := kdf.Derive(oldPw, rec.Panic.Salt, rec.Panic.Params)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(kek)
		secret.Zero(kek)
		if subtle.ConstantTimeCompare(sum[:], rec.Panic.Digest) != 1 {
			return vaulterr.CorruptStore
		}
		fresh, err := makeVerifier(newPw, rec.Panic.Params)
		if err != nil {
			return err
		}
		rec.Panic = fresh

	default:
		return vaulterr.Malformed
	}

	return atomicWrite(root.PasswordStoreFile(), rec.encode())
}

// Destroy zeroizes nothing in memory beyond what this call itself touches —
// PasswordStore holds no long-lived in-memory state between calls — and
// overwrites the PasswordStoreFile's bytes before unlinking it. This is the
// operation PanicExecutor's phase 1 drives; called directly it performs the
// same destruction outside of a panic flow (e.g. a deliberate "forget this
// vault" action).
func Destroy(root vaultroot.Root) error {
	unlock := vaultlock.Lock(root)
	defer unlock()
	return destroyFile(root.PasswordStoreFile())
}

// destroyFile best-effort overwrites path's bytes with zeros before
// unlinking it. Overwrite failures are logged but do not prevent the unlink
// attempt — on flash/CoW storage the overwrite is not guaranteed to reach
// the original physical blocks regardless.
func destroyFile(path string) error {
	if info, err := os.Stat(path); err == nil {
		if f, ferr := os.OpenFile(path, os.O_WRONLY, 0600); ferr == nil {
			zeros := make([]byte, info.Size())
			if _, werr := f.WriteAt(zeros, 0); werr != nil {
				log.Warn("best-effort overwrite failed", log.Err(werr), log.String("path", path))
			}
			_ = f.Sync()
			_ = f.Close()
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return vaulterr.IOError
	}
	return nil
}
