package encryption

import (
	"bytes"
	"fmt"
	"io"

	"changestore/internal/store"
)

// testMagic marks payloads written by TestEncryptor.
var testMagic = []byte("CHSENC\x00\x00")

// TestEncryptor is a deterministic stand-in for age in tests and in stores
// configured with type "test". It frames the payload with a fixed magic so
// stored bytes differ from plaintext without any key material.
type TestEncryptor struct {
	setupCalled bool
}

var _ store.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing test magic: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(string) (store.DecryptionContext, error) {
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the magic added by TestEncryptor.
type TestDecryptionContext struct{}

var _ store.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	magic := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("reading test magic: %w", err)
	}
	if !bytes.Equal(magic, testMagic) {
		return fmt.Errorf("payload was not written by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
