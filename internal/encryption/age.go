package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"bagger/internal/bagger"
)

// AgeEncryptor implements bagger.Encryptor using filippo.io/age with an
// X25519 identity kept in a local file, readable only by the owner.
type AgeEncryptor struct {
	identityPath string

	mu       sync.Mutex
	identity *age.X25519Identity
}

var _ bagger.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor backed by the identity at identityPath.
func NewAgeEncryptor(identityPath string) *AgeEncryptor {
	return &AgeEncryptor{identityPath: identityPath}
}

// Setup generates a new X25519 identity and writes it to the identity path.
// It refuses to overwrite an existing identity.
func (e *AgeEncryptor) Setup() error {
	if e.IsConfigured() {
		return fmt.Errorf("identity already exists at %s", e.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	content := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)
	if err := os.WriteFile(e.identityPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}

	e.mu.Lock()
	e.identity = identity
	e.mu.Unlock()
	return nil
}

// IsConfigured returns true if the identity file exists.
func (e *AgeEncryptor) IsConfigured() bool {
	_, err := os.Stat(e.identityPath)
	return err == nil
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	identity, err := e.loadIdentity()
	if err != nil {
		return err
	}

	encWriter, err := age.Encrypt(w, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (e *AgeEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	identity, err := e.loadIdentity()
	if err != nil {
		return err
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// Recipient returns the public half of the identity, for display.
func (e *AgeEncryptor) Recipient() (string, error) {
	identity, err := e.loadIdentity()
	if err != nil {
		return "", err
	}
	return identity.Recipient().String(), nil
}

func (e *AgeEncryptor) loadIdentity() (*age.X25519Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity != nil {
		return e.identity, nil
	}

	data, err := os.ReadFile(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			e.identity = x
			return x, nil
		}
	}
	return nil, errors.New("no X25519 identity found in identity file")
}
