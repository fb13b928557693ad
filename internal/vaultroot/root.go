// Package vaultroot names the on-disk layout of a vault and threads it
// explicitly through every core operation. This replaces the process-wide
// AppConfig static the source mutated for vault paths (see spec.md §9):
// nothing in this repository reads a global for "where is the vault".
package vaultroot

import "path/filepath"

// Root identifies a vault's location on disk and the well-known entries
// beneath it, matching the persisted state layout from spec.md §6.
type Root struct {
	dir string
}

// New returns a Root rooted at dir. dir need not exist yet — Create-style
// operations are responsible for calling os.MkdirAll where needed.
func New(dir string) Root {
	return Root{dir: filepath.Clean(dir)}
}

// Dir returns the vault root directory itself.
func (r Root) Dir() string { return r.dir }

// PasswordStoreFile is the path to the persisted triple-credential record.
func (r Root) PasswordStoreFile() string { return filepath.Join(r.dir, "password_store") }

// SaltFile is the path to auxiliary salt material split out of
// PasswordStoreFile, if the implementation chooses to store it separately.
func (r Root) SaltFile() string { return filepath.Join(r.dir, "salt") }

// FilesDir holds opaque data-file ciphertext frames.
func (r Root) FilesDir() string { return filepath.Join(r.dir, "files") }

// MetadataDir holds opaque metadata ciphertext frames.
func (r Root) MetadataDir() string { return filepath.Join(r.dir, "metadata") }

// LogsDir holds audit material, opaque to the core.
func (r Root) LogsDir() string { return filepath.Join(r.dir, "logs") }

// Join resolves a relative path against the vault root.
func (r Root) Join(elem ...string) string {
	return filepath.Join(append([]string{r.dir}, elem...)...)
}
