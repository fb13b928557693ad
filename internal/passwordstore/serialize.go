package passwordstore

import (
	"bytes"
	"encoding/binary"
	"io"

	"vaultcore/internal/kdf"
	"vaultcore/internal/vaulterr"
)

// The PasswordStoreFile wire format is a sequence of length-prefixed fields
// after a single version byte:
//
//	version(1) ‖ wrappedKey(MASTER) ‖ wrappedKey(DECOY) ‖ panicVerifier
//
// where wrappedKey/panicVerifier are themselves:
//
//	saltLen(4,BE) ‖ salt ‖ params(21, fixed) ‖ bodyLen(4,BE) ‖ body
//
// bodyLen covers the WrappedKey's AEAD frame or the PanicVerifier's digest.
// Every length is explicit so a truncated or doctored file is caught as
// MALFORMED rather than read past its real extent.

func writeField(buf *bytes.Buffer, salt []byte, params kdf.KdfParams, body []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(salt)))
	buf.Write(lenBuf[:])
	buf.Write(salt)
	buf.Write(params.ToBytes())
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
}

func readField(r *bytes.Reader) (salt []byte, params kdf.KdfParams, body []byte, err error) {
	saltLen, err := readU32(r)
	if err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	salt = make([]byte, saltLen)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}

	paramsBuf := make([]byte, kdf.ParamsEncodedSize)
	if _, err := io.ReadFull(r, paramsBuf); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	params, err = kdf.FromBytes(paramsBuf)
	if err != nil {
		return nil, kdf.KdfParams{}, nil, err
	}

	bodyLen, err := readU32(r)
	if err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	body = make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, kdf.KdfParams{}, nil, vaulterr.Malformed
	}
	return salt, params, body, nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// encode serializes rec into the PasswordStoreFile byte layout.
func (rec record) encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(rec.Version))
	writeField(&buf, rec.Master.Salt, rec.Master.Params, rec.Master.Frame)
	writeField(&buf, rec.Decoy.Salt, rec.Decoy.Params, rec.Decoy.Frame)
	writeField(&buf, rec.Panic.Salt, rec.Panic.Params, rec.Panic.Digest)
	return buf.Bytes()
}

// decodeRecord parses a PasswordStoreFile. It returns vaulterr.Malformed for
// any truncation, and refuses any version it does not recognize — no silent
// upgrade path exists.
func decodeRecord(data []byte) (record, error) {
	if len(data) < 1 {
		return record{}, vaulterr.Malformed
	}
	r := bytes.NewReader(data)
	versionByte, err := r.ReadByte()
	if err != nil {
		return record{}, vaulterr.Malformed
	}
	if int(versionByte) != storeFormatVersion {
		return record{}, vaulterr.Malformed
	}

	masterSalt, masterParams, masterFrame, err := readField(r)
	if err != nil {
		return record{}, err
	}
	decoySalt, decoyParams, decoyFrame, err := readField(r)
	if err != nil {
		return record{}, err
	}
	panicSalt, panicParams, panicDigest, err := readField(r)
	if err != nil {
		return record{}, err
	}

	return record{
		Version: int(versionByte),
		Master:  WrappedKey{Salt: masterSalt, Params: masterParams, Frame: masterFrame},
		Decoy:   WrappedKey{Salt: decoySalt, Params: decoyParams, Frame: decoyFrame},
		Panic:   PanicVerifier{Salt: panicSalt, Params: panicParams, Digest: panicDigest},
	}, nil
}
