package kdf

import (
	"time"

	"vaultcore/internal/log"
	"vaultcore/internal/secret"
)

// benchTargetMin and benchTargetMax bound the derivation latency the
// benchmark aims to land inside.
const (
	benchTargetMin = 400 * time.Millisecond
	benchTargetMax = 800 * time.Millisecond
)

// Bench scales Argon2id's memory cost upward (doubling from DefaultMemoryKiB)
// until a single derivation lands in [400ms, 800ms] on this host, capped at
// MaxMemoryKiB and never dropping below MinMemoryKiB. It returns the chosen
// KdfParams, which carry no salt: the probe derives a throwaway password
// under a random salt, and the salt and probe key are discarded.
func Bench() (KdfParams, error) {
	params := DefaultArgon2Params()
	probe := secret.NewPasswordFromString("benchmark-probe-password")
	defer probe.Close()

	salt, err := secret.Random(int(params.SaltLen))
	if err != nil {
		return KdfParams{}, err
	}

	for {
		start := time.Now()
		key, err := Derive(probe, salt, params)
		elapsed := time.Since(start)
		if err != nil {
			return KdfParams{}, err
		}
		secret.Zero(key)

		log.Debug("kdf benchmark probe", log.Component("kdf"),
			log.Int("memKiB", int(params.MemoryKiB)), log.Duration("elapsed", elapsed))

		if elapsed >= benchTargetMin && elapsed <= benchTargetMax {
			return params, nil
		}
		if elapsed > benchTargetMax || params.MemoryKiB >= MaxMemoryKiB {
			// Either we overshot or we've hit the ceiling — stop scaling and
			// keep the last measured parameter set rather than looping
			// forever on a host that can never land in the target window.
			return params, nil
		}

		next := params.MemoryKiB * 2
		if next > MaxMemoryKiB {
			next = MaxMemoryKiB
		}
		params.MemoryKiB = next
	}
}
