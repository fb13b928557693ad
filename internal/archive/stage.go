package archive

import (
	"os"
	"path/filepath"
)

// FileEntry names a file that should appear in a zip body under Name,
// regardless of where Path actually lives on disk. BackupCodec uses this to
// mix files pulled from two different live directories (files/, metadata/)
// plus a freshly-generated manifest into one archive with a single flat
// RootDir for CreateZip's relative-path accounting.
type FileEntry struct {
	Name string
	Path string
}

// StageTree materializes entries as symlinks inside dir, each named by its
// Name field, and — when extraName is non-empty — writes extraBytes to a
// real file at dir/extraName. It returns every staged path in the order
// CreateZip should receive them (extra first, then entries), with dir as the
// RootDir so each zip entry's header.Name ends up exactly Name rather than
// whatever basename the data happens to live under on disk.
//
// Symlinking rather than copying keeps StageTree cheap even for a vault
// holding gigabytes of file data: CreateZip opens and reads through the
// link, never touching its target's directory structure.
func StageTree(dir, extraName string, extraBytes []byte, entries []FileEntry) ([]string, error) {
	files := make([]string, 0, len(entries)+1)

	if extraName != "" {
		extraPath := filepath.Join(dir, extraName)
		if err := os.WriteFile(extraPath, extraBytes, 0600); err != nil {
			return nil, err
		}
		files = append(files, extraPath)
	}

	for _, e := range entries {
		linkPath := filepath.Join(dir, e.Name)
		if err := os.MkdirAll(filepath.Dir(linkPath), 0700); err != nil {
			return nil, err
		}
		if err := os.Symlink(e.Path, linkPath); err != nil {
			return nil, err
		}
		files = append(files, linkPath)
	}

	return files, nil
}
