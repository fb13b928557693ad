package backupcodec

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"time"

	"vaultcore/internal/codec"
	"vaultcore/internal/kdf"
	"vaultcore/internal/secret"
	"vaultcore/internal/vaulterr"
)

// readFrameHeader parses Magic, Version, salt and KdfParams from the front of
// a backup file, returning the AEAD frame (IV‖CT) that follows. It never
// reads past the header plus declared salt length before deciding whether
// the file is even a recognizable backup, so a corrupt or foreign file is
// rejected without attempting a decryption.
func readFrameHeader(r io.Reader) (salt []byte, params kdf.KdfParams, frame []byte, err error) {
	magic := make([]byte, len(Magic))
	if _, err = io.ReadFull(r, magic); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	if string(magic) != Magic {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}

	version := make([]byte, len(Version))
	if _, err = io.ReadFull(r, version); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	if string(version) != Version {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}

	var saltLenBuf [2]byte
	if _, err = io.ReadFull(r, saltLenBuf[:]); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	saltLen := binary.BigEndian.Uint16(saltLenBuf[:])

	salt = make([]byte, saltLen)
	if _, err = io.ReadFull(r, salt); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}

	paramsBuf := make([]byte, kdf.ParamsEncodedSize)
	if _, err = io.ReadFull(r, paramsBuf); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	params, err = kdf.FromBytes(paramsBuf)
	if err != nil {
		return nil, kdf.KdfParams{}, nil, err
	}

	frame, err = io.ReadAll(r)
	if err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	return salt, params, frame, nil
}

// openBackup derives the backup key from password and the file's own salt,
// then opens the AEAD frame, returning the plaintext zip body.
func openBackup(r io.Reader, password *secret.Password) ([]byte, error) {
	salt, params, frame, err := readFrameHeader(r)
	if err != nil {
		return nil, err
	}

	key, err := kdf.Derive(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(key)

	plaintext, err := codec.Decrypt(frame, key, []byte(adLabel))
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// readManifest extracts and parses MANIFEST.json from a decrypted zip body
// without writing any entry to disk.
func readManifest(zipBody []byte) (BackupManifest, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBody), int64(len(zipBody)))
	if err != nil {
		return BackupManifest{}, vaulterr.Malformed
	}
	for _, f := range zr.File {
		if f.Name != manifestEntryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return BackupManifest{}, vaulterr.Malformed
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return BackupManifest{}, vaulterr.Malformed
		}
		var m BackupManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return BackupManifest{}, vaulterr.Malformed
		}
		return m, nil
	}
	return BackupManifest{}, vaulterr.Malformed
}

// Verify opens file under password and reports the manifest it finds,
// without extracting any data file or touching the live vault. A file whose
// magic, version, AEAD tag or manifest don't check out yields Valid=false
// together with the non-nil error that rejected it.
func Verify(r io.Reader, password *secret.Password) (VerifyResult, error) {
	zipBody, err := openBackup(r, password)
	if err != nil {
		return VerifyResult{Valid: false}, err
	}

	manifest, err := readManifest(zipBody)
	if err != nil {
		return VerifyResult{Valid: false}, err
	}

	created, err := time.Parse(time.RFC3339, manifest.CreationDate)
	if err != nil {
		return VerifyResult{Valid: false}, vaulterr.Malformed
	}

	return VerifyResult{
		Valid:        true,
		Version:      manifest.Version,
		CreationDate: created,
		FileCount:    manifest.FileCount,
		TotalSize:    manifest.TotalSize,
	}, nil
}
