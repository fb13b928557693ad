package backupcodec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"vaultcore/internal/archive"
	"vaultcore/internal/codec"
	"vaultcore/internal/kdf"
	"vaultcore/internal/secret"
	"vaultcore/internal/vaultroot"
)

// CreateOptions configures Create.
//
// SkipVerify must be set explicitly to skip the mandatory create-time
// round-trip; the zero value (false) always verifies, per spec.md §9 —
// there is no way to silently produce an unverified backup.
type CreateOptions struct {
	Progress   ProgressFunc
	Cancel     CancelFunc
	SkipVerify bool
}

// Create walks root's data tree (files/, metadata/), builds a manifest with
// a vaultDigest over the canonical entry ordering, compresses the tree with
// the manifest as its first entry, derives a backup key from password with
// a fresh salt, and writes the framed, encrypted result to out. Unless
// opts.SkipVerify is set, the freshly-built frame is round-tripped through
// Verify before Create returns, so a backup that cannot be opened and read
// back never silently reaches the caller.
//
// The staging zip is protected on disk by an ephemeral ChaCha20 stream
// cipher for the duration of compression — the same defense-in-depth the
// fileops lineage this package grew from applies to any plaintext passing
// through a temp file — and is removed before Create returns.
func Create(root vaultroot.Root, out io.Writer, password *secret.Password, opts CreateOptions) error {
	filesEntries, err := collectTree(root.FilesDir(), "files")
	if err != nil {
		return err
	}
	metaEntries, err := collectTree(root.MetadataDir(), "metadata")
	if err != nil {
		return err
	}
	entries := append(filesEntries, metaEntries...)

	digest, err := vaultDigest(entries)
	if err != nil {
		return err
	}

	var totalSize uint64
	for _, e := range entries {
		totalSize += uint64(e.Size)
	}

	manifest := BackupManifest{
		Version:       Version,
		CreationDate:  time.Now().UTC().Format(time.RFC3339),
		FileCount:     uint32(len(entries)),
		TotalSize:     totalSize,
		VaultChecksum: digest,
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return err
	}

	stagingDir, err := os.MkdirTemp("", "vaultcore-backup-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer os.RemoveAll(stagingDir)

	stageEntries := make([]archive.FileEntry, len(entries))
	for i, e := range entries {
		stageEntries[i] = archive.FileEntry{Name: e.Name, Path: e.Path}
	}
	files, err := archive.StageTree(stagingDir, manifestEntryName, manifestBytes, stageEntries)
	if err != nil {
		return err
	}

	zipDir, err := os.MkdirTemp("", "vaultcore-backup-zip-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer os.RemoveAll(zipDir)
	zipPath := filepath.Join(zipDir, "archive.zip.tmp")

	ciphers, err := archive.NewTempZipCiphers()
	if err != nil {
		return err
	}
	defer ciphers.Close()

	var cancel archive.CancelFunc
	if opts.Cancel != nil {
		cancel = archive.CancelFunc(opts.Cancel)
	}
	var progress archive.ProgressFunc
	if opts.Progress != nil {
		total := len(files)
		progress = func(p float32, info string) { opts.Progress(int(p * float32(total)), total, info) }
	}

	if err := archive.CreateZip(archive.ZipOptions{
		Files:      files,
		RootDir:    stagingDir,
		OutputPath: zipPath,
		Compress:   true,
		Cipher:     ciphers,
		Progress:   progress,
		Cancel:     cancel,
	}); err != nil {
		return err
	}

	zipFile, err := os.Open(zipPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()
	plainZip := archive.WrapReaderWithCipher(zipFile, ciphers)

	params := kdf.DefaultArgon2Params()
	salt, err := secret.Random(int(params.SaltLen))
	if err != nil {
		return err
	}
	backupKey, err := kdf.Derive(password, salt, params)
	if err != nil {
		return err
	}
	defer secret.Zero(backupKey)

	var frame bytes.Buffer
	frame.WriteString(Magic)
	frame.WriteString(Version)
	var saltLenBuf [2]byte
	binary.BigEndian.PutUint16(saltLenBuf[:], uint16(len(salt)))
	frame.Write(saltLenBuf[:])
	frame.Write(salt)
	frame.Write(params.ToBytes())

	if err := codec.EncryptStream(&frame, plainZip, backupKey, []byte(adLabel)); err != nil {
		return err
	}

	if !opts.SkipVerify {
		if _, err := Verify(bytes.NewReader(frame.Bytes()), password); err != nil {
			return fmt.Errorf("create-time verification failed: %w", err)
		}
	}

	_, err = out.Write(frame.Bytes())
	return err
}
