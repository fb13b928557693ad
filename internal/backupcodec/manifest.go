package backupcodec

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
)

// treeEntry names one file inside the vault's data tree relative to the
// vault root (e.g. "files/a.bin", "metadata/m.json") alongside its absolute
// path on disk.
type treeEntry struct {
	Name string
	Path string
	Size int64
}

// vaultDigest computes SHA-256 over the canonical ordering required by
// spec.md §3: the concatenation of name_i ‖ 0x00 ‖ sha256(bytes_i) for
// entries sorted by lexicographic name. An empty tree's digest is
// SHA-256 of the empty byte string, which this produces naturally since the
// loop below simply contributes nothing.
func vaultDigest(entries []treeEntry) (string, error) {
	sorted := make([]treeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	for _, e := range sorted {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256(data)
		h.Write([]byte(e.Name))
		h.Write([]byte{0x00})
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// collectTree walks dir and returns every regular file as a treeEntry named
// relative to dir with prefix prepended (e.g. prefix "files" turns
// dir/a/b.bin into "files/a/b.bin"). Returns an empty, non-nil slice for a
// directory that does not exist or is empty — an empty vault is valid.
func collectTree(dir, prefix string) ([]treeEntry, error) {
	entries := []treeEntry{}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return entries, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, treeEntry{
			Name: filepath.ToSlash(filepath.Join(prefix, rel)),
			Path: path,
			Size: info.Size(),
		})
		return nil
	})
	return entries, err
}
