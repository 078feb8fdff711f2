package encryption

import (
	"bytes"
	"testing"
)

func TestTestEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewTestEncryptor()

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !bytes.HasPrefix(encrypted.Bytes(), testHeader) {
				t.Error("encrypted output missing test header")
			}

			var decrypted bytes.Buffer
			if err := e.Decrypt(&encrypted, &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("Decrypt() = %q, want %q", decrypted.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_DecryptRejectsPlaintext(t *testing.T) {
	t.Parallel()
	e := NewTestEncryptor()
	err := e.Decrypt(bytes.NewReader([]byte("plaintext value")), &bytes.Buffer{})
	if err == nil {
		t.Error("Decrypt() error = nil, want header error")
	}
}
