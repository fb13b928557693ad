package backupcodec

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"vaultcore/internal/archive"
	"vaultcore/internal/secret"
	"vaultcore/internal/vaultlock"
	"vaultcore/internal/vaulterr"
	"vaultcore/internal/vaultroot"
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	Progress ProgressFunc
	Cancel   CancelFunc
}

// RestoreResult reports what state the machine ended in and, on success,
// the manifest of the backup that was applied.
type RestoreResult struct {
	FinalState State
	Manifest   BackupManifest
}

// Restore replaces root's files/ and metadata/ trees with the contents of
// the backup read from r, verifying the archive's integrity and the
// reconstructed vault's digest before ever touching the live vault. Any
// failure up through VERIFYING_DIGEST leaves the live vault byte-for-byte
// unchanged; Restore only starts mutating root once it reaches COMMITTING,
// by which point the new tree has already been proven intact.
func Restore(root vaultroot.Root, r io.Reader, password *secret.Password, opts RestoreOptions) (RestoreResult, error) {
	unlock := vaultlock.Lock(root)
	defer unlock()

	state := StateVerifying
	zipBody, err := openBackup(r, password)
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	manifest, err := readManifest(zipBody)
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}

	state = StateStagingRollback
	rollbackDir, err := os.MkdirTemp("", "vaultcore-rollback-"+uuid.NewString())
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	defer os.RemoveAll(rollbackDir)
	if err := snapshotLiveTree(root, rollbackDir); err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}

	state = StateExtracting
	stagingDir, err := os.MkdirTemp("", "vaultcore-restore-"+uuid.NewString())
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	defer os.RemoveAll(stagingDir)

	zipPath := filepath.Join(stagingDir, "body.zip")
	if err := os.WriteFile(zipPath, zipBody, 0600); err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}

	extractDir := filepath.Join(stagingDir, "extracted")
	var cancel archive.CancelFunc
	if opts.Cancel != nil {
		cancel = archive.CancelFunc(opts.Cancel)
	}
	var progress archive.ProgressFunc
	if opts.Progress != nil {
		progress = func(p float32, info string) { opts.Progress(int(p * 100), 100, info) }
	}
	if err := archive.Unpack(archive.UnpackOptions{
		ZipPath:    zipPath,
		ExtractDir: extractDir,
		SameLevel:  true,
		Progress:   progress,
		Cancel:     cancel,
	}); err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}

	state = StateVerifyingDigest
	extractedFiles, err := collectTree(filepath.Join(extractDir, "files"), "files")
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	extractedMeta, err := collectTree(filepath.Join(extractDir, "metadata"), "metadata")
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	digest, err := vaultDigest(append(extractedFiles, extractedMeta...))
	if err != nil {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}
	if digest != manifest.VaultChecksum {
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), vaulterr.Tamper)
	}

	state = StateCommitting
	if err := commitTree(root, extractDir); err != nil {
		rollbackErr := restoreSnapshot(root, rollbackDir)
		if rollbackErr != nil {
			return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(StateRollingBack), rollbackErr)
		}
		return RestoreResult{FinalState: StateFailed}, vaulterr.NewStateError(string(state), err)
	}

	return RestoreResult{FinalState: StateDone, Manifest: manifest}, nil
}

// snapshotLiveTree copies root's current files/ and metadata/ trees into
// dir, so a failed commit can be rolled back to exactly what was there
// before Restore started mutating anything.
func snapshotLiveTree(root vaultroot.Root, dir string) error {
	for _, pair := range []struct{ src, name string }{
		{root.FilesDir(), "files"},
		{root.MetadataDir(), "metadata"},
	} {
		dst := filepath.Join(dir, pair.name)
		if _, err := os.Stat(pair.src); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(pair.src, dst); err != nil {
			return err
		}
	}
	return nil
}

// commitTree swaps root's files/ and metadata/ trees for the
// verified ones in extractDir. The replace is not perfectly atomic across
// both directories at once, but each individual directory replace is a
// single os.Rename once the old one is out of the way.
func commitTree(root vaultroot.Root, extractDir string) error {
	for _, pair := range []struct {
		liveDir, stagedName string
	}{
		{root.FilesDir(), "files"},
		{root.MetadataDir(), "metadata"},
	} {
		staged := filepath.Join(extractDir, pair.stagedName)
		if _, err := os.Stat(staged); os.IsNotExist(err) {
			staged = ""
		}
		if err := os.RemoveAll(pair.liveDir); err != nil {
			return err
		}
		if staged == "" {
			if err := os.MkdirAll(pair.liveDir, 0700); err != nil {
				return err
			}
			continue
		}
		if err := os.Rename(staged, pair.liveDir); err != nil {
			return err
		}
	}
	return nil
}

// restoreSnapshot reverses snapshotLiveTree, used only when a commit fails
// partway through and the live vault must be returned to its prior state.
func restoreSnapshot(root vaultroot.Root, dir string) error {
	for _, pair := range []struct{ dst, name string }{
		{root.FilesDir(), "files"},
		{root.MetadataDir(), "metadata"},
	} {
		src := filepath.Join(dir, pair.name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(pair.dst); err != nil {
			return err
		}
		if err := copyTree(src, pair.dst); err != nil {
			return err
		}
	}
	return nil
}

// copyTree recursively copies src to dst, used for the rollback snapshot
// since the live tree must remain usable while the snapshot exists (a plain
// rename would empty it out before Restore even starts extracting).
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0700)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0600)
	})
}
