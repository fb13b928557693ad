// Package kdf derives fixed-length keys from password material using a
// memory-hard algorithm, resisting offline brute force on commodity GPUs.
// This is AUDIT-CRITICAL code - changes here directly affect whether existing
// WrappedKeys and PanicVerifiers can still be unwrapped/verified.
package kdf

import (
	"encoding/binary"

	"vaultcore/internal/vaulterr"
)

// Algorithm tags stored in KdfParams and serialized to disk.
type Algorithm byte

const (
	// Argon2ID is the primary, memory-hard derivation algorithm.
	Argon2ID Algorithm = 1
	// PBKDF2HMACSHA512 is the fallback used only when Argon2id is
	// unavailable in the host environment.
	PBKDF2HMACSHA512 Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case Argon2ID:
		return "ARGON2ID"
	case PBKDF2HMACSHA512:
		return "PBKDF2_HMAC_SHA512"
	default:
		return "UNKNOWN"
	}
}

// Safety floor and ceiling for Argon2 memory cost, independent of what the
// benchmark selects. A slow host must never be benchmarked below MinMemoryKiB;
// a fast host is never pushed above MaxMemoryKiB.
const (
	MinMemoryKiB = 16 * 1024  // 16 MiB
	MaxMemoryKiB = 256 * 1024 // 256 MiB

	DefaultMemoryKiB    = 64 * 1024 // 64 MiB
	DefaultTimeCost     = 3
	DefaultParallelism  = 4
	DefaultPBKDF2Iters  = 600_000
	DefaultSaltLen      = 16
	DefaultOutputLen    = 32
)

// KdfParams records the tunable parameters for one derivation, persisted
// alongside the salt so a later derive() call can reproduce the same key.
// Fields not applicable to the selected Algorithm are left zero.
type KdfParams struct {
	Algorithm     Algorithm
	MemoryKiB     uint32 // Argon2id memory cost
	TimeCost      uint32 // Argon2id passes
	Parallelism   uint32 // Argon2id threads/lanes
	PBKDF2Iters   uint32 // PBKDF2-HMAC-SHA512 iteration count
	SaltLen       uint16
	OutputLen     uint16
}

// DefaultArgon2Params returns the documented default parameter set, used when
// no benchmark has been run yet (e.g. in tests, or as a conservative fallback).
func DefaultArgon2Params() KdfParams {
	return KdfParams{
		Algorithm:   Argon2ID,
		MemoryKiB:   DefaultMemoryKiB,
		TimeCost:    DefaultTimeCost,
		Parallelism: DefaultParallelism,
		SaltLen:     DefaultSaltLen,
		OutputLen:   DefaultOutputLen,
	}
}

// DefaultPBKDF2Params returns the fallback parameter set used only when
// Argon2id is unavailable in the current environment.
func DefaultPBKDF2Params() KdfParams {
	return KdfParams{
		Algorithm:   PBKDF2HMACSHA512,
		PBKDF2Iters: DefaultPBKDF2Iters,
		SaltLen:     DefaultSaltLen,
		OutputLen:   DefaultOutputLen,
	}
}

// ParamsEncodedSize is the fixed wire size of KdfParams: tag(1) + memKiB(4) +
// passes(4) + parallelism(4) + pbkdf2Iters(4) + saltLen(2) + outLen(2).
// Callers framing a KdfParams record inside a larger container (e.g.
// passwordstore's WrappedKey/PanicVerifier fields) use this to know how many
// bytes to read before their own next field.
const ParamsEncodedSize = 1 + 4 + 4 + 4 + 4 + 2 + 2

const paramsEncSize = ParamsEncodedSize

// ToBytes serializes π into the portable fixed-width binary record from §6.
func (p KdfParams) ToBytes() []byte {
	b := make([]byte, paramsEncSize)
	b[0] = byte(p.Algorithm)
	binary.BigEndian.PutUint32(b[1:5], p.MemoryKiB)
	binary.BigEndian.PutUint32(b[5:9], p.TimeCost)
	binary.BigEndian.PutUint32(b[9:13], p.Parallelism)
	binary.BigEndian.PutUint32(b[13:17], p.PBKDF2Iters)
	binary.BigEndian.PutUint16(b[17:19], p.SaltLen)
	binary.BigEndian.PutUint16(b[19:21], p.OutputLen)
	return b
}

// FromBytes parses the fixed-width binary record produced by ToBytes.
// Returns vaulterr.Malformed if b is the wrong length, or
// vaulterr.KDFParamsInvalid if the decoded fields fail Validate.
func FromBytes(b []byte) (KdfParams, error) {
	if len(b) != paramsEncSize {
		return KdfParams{}, vaulterr.Malformed
	}
	p := KdfParams{
		Algorithm:   Algorithm(b[0]),
		MemoryKiB:   binary.BigEndian.Uint32(b[1:5]),
		TimeCost:    binary.BigEndian.Uint32(b[5:9]),
		Parallelism: binary.BigEndian.Uint32(b[9:13]),
		PBKDF2Iters: binary.BigEndian.Uint32(b[13:17]),
		SaltLen:     binary.BigEndian.Uint16(b[17:19]),
		OutputLen:   binary.BigEndian.Uint16(b[19:21]),
	}
	if err := p.Validate(); err != nil {
		return KdfParams{}, err
	}
	return p, nil
}

// Validate checks that p's fields are within the documented ranges for its
// algorithm. It does not check liveness of the algorithm in the environment —
// see derive() for that.
func (p KdfParams) Validate() error {
	if p.OutputLen == 0 || p.OutputLen > 64 {
		return vaulterr.KDFParamsInvalid
	}
	if p.SaltLen == 0 || p.SaltLen > 64 {
		return vaulterr.KDFParamsInvalid
	}
	switch p.Algorithm {
	case Argon2ID:
		if p.MemoryKiB < MinMemoryKiB || p.MemoryKiB > MaxMemoryKiB {
			return vaulterr.KDFParamsInvalid
		}
		if p.TimeCost == 0 || p.Parallelism == 0 {
			return vaulterr.KDFParamsInvalid
		}
	case PBKDF2HMACSHA512:
		if p.PBKDF2Iters < 600_000 {
			return vaulterr.KDFParamsInvalid
		}
	default:
		return vaulterr.KDFParamsInvalid
	}
	return nil
}
