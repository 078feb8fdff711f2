package bagger_test

import (
	"strings"
	"testing"

	"bagger/internal/bagger"
	"bagger/internal/storage"
	"bagger/internal/testutil"
)

func TestTokenStore(t *testing.T) {
	st := testutil.NewTestStorage()
	if err := st.Set(bagger.TokenKey, "persisted"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	tokens, err := bagger.NewTokenStore(st)
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if got := tokens.Token(); got != "persisted" {
		t.Errorf("Token() = %q, want persisted", got)
	}

	if err := tokens.Set("fresh"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _, _ := st.Get(bagger.TokenKey); v != "fresh" {
		t.Errorf("stored token = %q, want fresh", v)
	}

	if err := tokens.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if tokens.Token() != "" {
		t.Error("Token() not empty after Clear")
	}
	if _, ok, _ := st.Get(bagger.TokenKey); ok {
		t.Error("token still stored after Clear")
	}
}

func TestTokenStore_SealedStorage(t *testing.T) {
	inner := testutil.NewTestStorage()
	sealed := storage.NewSealedStorage(inner, testutil.NewTestEncryptor(), bagger.NewNopLogger())

	tokens, err := bagger.NewTokenStore(sealed)
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if err := tokens.Set("eyJ.secret.sig"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if raw, _, _ := inner.Get(bagger.TokenKey); strings.Contains(raw, "secret") {
		t.Errorf("token stored in plaintext: %q", raw)
	}

	reloaded, err := bagger.NewTokenStore(sealed)
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if got := reloaded.Token(); got != "eyJ.secret.sig" {
		t.Errorf("Token() = %q after reload", got)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := bagger.CacheKey(7); got != "bagger_cache_u7" {
		t.Errorf("CacheKey(7) = %q", got)
	}
	if got := bagger.CacheTimeKey(7); got != "bagger_cache_u7_time" {
		t.Errorf("CacheTimeKey(7) = %q", got)
	}
}
