package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"bagger/internal/bagger"
)

// SealedStorage encrypts values before handing them to the inner Storage.
// Values are stored as base64 ciphertext. A value that cannot be decrypted
// reads as absent, so a rotated key behaves like an empty cache.
type SealedStorage struct {
	inner     bagger.Storage
	encryptor bagger.Encryptor
	logger    bagger.Logger
}

var _ bagger.Storage = (*SealedStorage)(nil)

func NewSealedStorage(inner bagger.Storage, encryptor bagger.Encryptor, logger bagger.Logger) *SealedStorage {
	return &SealedStorage{inner: inner, encryptor: encryptor, logger: logger}
}

func (s *SealedStorage) Get(key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		s.logger.Warn("sealed value is not base64", "key", key)
		return "", false, nil
	}

	var plain bytes.Buffer
	if err := s.encryptor.Decrypt(bytes.NewReader(ciphertext), &plain); err != nil {
		s.logger.Warn("sealed value could not be decrypted", "key", key, "error", err)
		return "", false, nil
	}
	return plain.String(), true, nil
}

func (s *SealedStorage) Set(key, value string) error {
	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(strings.NewReader(value), &sealed); err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	return s.inner.Set(key, base64.StdEncoding.EncodeToString(sealed.Bytes()))
}

func (s *SealedStorage) Delete(keys ...string) error {
	return s.inner.Delete(keys...)
}

// CheckMigrations checks the inner storage's schema, if it has one.
func (s *SealedStorage) CheckMigrations() error {
	return CheckSchema(s.inner)
}

func (s *SealedStorage) Close() error {
	return s.inner.Close()
}
