package format

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/driftline/keepsake/node"
)

const keyIterations = 10000

var (
	// ErrInvalidKey is returned when the passphrase is too short.
	ErrInvalidKey = errors.New("format: invalid encryption key")

	// ErrDecryptionFailed is returned when the ciphertext does not
	// authenticate, e.g. wrong key or tampered data.
	ErrDecryptionFailed = errors.New("format: decryption failed")
)

// Encrypted wraps another Format with AES-256-GCM encryption. The key is
// derived from the passphrase with PBKDF2-SHA256; the random nonce is
// prepended to the ciphertext.
type Encrypted struct {
	inner Format
	gcm   cipher.AEAD
}

// Encrypt wraps the format, deriving the cipher key from the passphrase and
// salt. The same passphrase and salt must be supplied to read the data back.
func Encrypt(inner Format, passphrase, salt []byte) (Encrypted, error) {
	if len(passphrase) < 16 {
		return Encrypted{}, ErrInvalidKey
	}
	key := pbkdf2.Key(passphrase, salt, keyIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return Encrypted{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Encrypted{}, err
	}
	return Encrypted{inner: inner, gcm: gcm}, nil
}

func (f Encrypted) Extension() string { return f.inner.Extension() + ".enc" }

func (f Encrypted) Encoding() node.Encoding { return f.inner.Encoding() }

func (f Encrypted) Serialize(w io.Writer, doc any) error {
	var buf bytes.Buffer
	if err := f.inner.Serialize(&buf, doc); err != nil {
		return err
	}
	nonce := make([]byte, f.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("%w: nonce: %v", ErrEncode, err)
	}
	sealed := f.gcm.Seal(nonce, nonce, buf.Bytes(), nil)
	if _, err := w.Write(sealed); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

func (f Encrypted) Deserialize(r io.Reader) (any, error) {
	sealed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	ns := f.gcm.NonceSize()
	if len(sealed) < ns {
		return nil, ErrDecryptionFailed
	}
	plain, err := f.gcm.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return f.inner.Deserialize(bytes.NewReader(plain))
}
