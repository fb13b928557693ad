package passwordstore

import (
	"os"
	"path/filepath"

	"vaultcore/internal/vaulterr"
)

// atomicWrite writes data to path via a temporary sibling file, fsyncs it,
// then renames over the target — the rename is atomic on the same filesystem,
// so a crash mid-write never leaves a half-written PasswordStoreFile visible.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return vaulterr.Wrap(err, "create vault root")
	}

	tmp, err := os.CreateTemp(dir, ".password_store-*.tmp")
	if err != nil {
		return vaulterr.NewCryptoError("persist", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return vaulterr.NewCryptoError("persist", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return vaulterr.NewCryptoError("persist", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return vaulterr.NewCryptoError("persist", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return vaulterr.NewCryptoError("persist", err)
	}
	return nil
}

// loadRecord reads and parses the PasswordStoreFile at path.
func loadRecord(path string) (record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return record{}, vaulterr.NewCryptoError("load", err)
		}
		return record{}, vaulterr.IOError
	}
	return decodeRecord(data)
}
