package encryption

import (
	"fmt"
	"io"

	"camcheck/internal/camcheck"
)

// NoneEncryptor archives artifacts as plaintext.
type NoneEncryptor struct{}

var _ camcheck.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Setup(string) error { return nil }

func (NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (NoneEncryptor) Unlock(string) (camcheck.DecryptionContext, error) {
	return plainContext{}, nil
}

func (NoneEncryptor) IsConfigured() bool { return true }

func (NoneEncryptor) Suffix() string { return "" }

type plainContext struct{}

func (plainContext) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
