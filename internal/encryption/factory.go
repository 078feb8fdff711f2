package encryption

import (
	"fmt"

	"bagger/internal/bagger"
	"bagger/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) returns a nil Encryptor: values are stored as-is.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (bagger.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("identity_path required for age encryption")
		}
		e := NewAgeEncryptor(cfg.IdentityPath)
		if !e.IsConfigured() {
			return nil, fmt.Errorf("age identity not found at %s: run `bagger config keys`", cfg.IdentityPath)
		}
		return e, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
