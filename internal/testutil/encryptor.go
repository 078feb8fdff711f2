package testutil

import (
	"bagger/internal/bagger"
	"bagger/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() bagger.Encryptor {
	return encryption.NewTestEncryptor()
}
