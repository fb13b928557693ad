package codec

import (
	"bytes"
	"io"

	"vaultcore/internal/util"
)

// EncryptStream reads all of src into memory, seals it under key/ad, and
// writes the resulting frame to dst. The in-memory plaintext is zeroized once
// it has been sealed.
func EncryptStream(dst io.Writer, src io.Reader, key, ad []byte) error {
	plaintext, err := readAllPooled(src)
	if err != nil {
		return err
	}
	frame, err := Encrypt(plaintext, key, ad)
	Zeroize(plaintext)
	if err != nil {
		return err
	}
	_, err = dst.Write(frame)
	return err
}

// DecryptStream reads an entire frame from src, verifies and opens it under
// key/ad, and writes the recovered plaintext to dst.
func DecryptStream(dst io.Writer, src io.Reader, key, ad []byte) error {
	frame, err := readAllPooled(src)
	if err != nil {
		return err
	}
	plaintext, err := Decrypt(frame, key, ad)
	if err != nil {
		return err
	}
	defer Zeroize(plaintext)
	_, err = dst.Write(plaintext)
	return err
}

// readAllPooled drains r into a bytes.Buffer whose initial capacity is the
// size of a util.MiBPool buffer. The pooled buffer is borrowed only for its
// length and holds none of the data.
func readAllPooled(r io.Reader) ([]byte, error) {
	seed := util.GetMiBBuffer()
	defer util.PutMiBBuffer(seed)

	var buf bytes.Buffer
	buf.Grow(len(seed))
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
