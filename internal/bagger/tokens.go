package bagger

import (
	"fmt"
	"sync"
)

// TokenKey is the storage key for the persisted access token.
const TokenKey = "token"

// TokenStore is the single owner of the persisted access token.
// It satisfies api.TokenSource.
type TokenStore struct {
	storage Storage

	mu    sync.RWMutex
	token string
}

// NewTokenStore loads any persisted token from storage.
func NewTokenStore(storage Storage) (*TokenStore, error) {
	token, _, err := storage.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	return &TokenStore{storage: storage, token: token}, nil
}

// Token returns the current token, or "" when signed out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set persists token.
func (s *TokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(TokenKey, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	s.token = token
	return nil
}

// Clear discards the token in memory and in storage. The in-memory token is
// dropped even when storage fails.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := s.storage.Delete(TokenKey); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}
