package bagger_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"bagger/internal/api"
	"bagger/internal/bagger"
	"bagger/internal/model"
	"bagger/internal/storage"
	"bagger/internal/testutil"
)

const testPassword = "correct horse"

var testRetry = api.RetryPolicy{Attempts: 2, Step: time.Millisecond}

// harness wires a Session and DataStore to a FakeBackend the same way the
// app does: reset hooks clear the store and 401s force a logout.
type harness struct {
	backend *testutil.FakeBackend
	storage *storage.MemoryStorage
	clock   *testutil.StubClock
	tokens  *bagger.TokenStore
	client  *api.Client
	session *bagger.Session
	store   *bagger.DataStore
	user    model.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fb := testutil.NewFakeBackend(t)
	user := fb.AddUser("Ada", "ada@example.com", testPassword)
	fb.Seed(
		[]model.Platform{
			{ID: 1, Name: "Go", Slug: "go", Type: model.PlatformLanguage},
			{ID: 2, Name: "Docker", Slug: "docker", Type: model.PlatformTool},
		},
		[]model.Topic{
			{ID: 10, Name: "Concurrency", Slug: "concurrency"},
			{ID: 11, Name: "Networking", Slug: "networking"},
		},
		[]model.Cheat{
			{ID: 100, Title: "Start a goroutine", Code: "go f()", PlatformIDs: []int64{1}, TopicIDs: []int64{10}},
			{ID: 101, Title: "Run a container", Code: "docker run -it alpine", PlatformIDs: []int64{2}, TopicIDs: []int64{}, IsPublic: true},
		},
	)

	st := storage.NewMemoryStorage()
	tokens, err := bagger.NewTokenStore(st)
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	clock := testutil.FixedClock()
	logger := bagger.NewNopLogger()

	client := api.NewClient(fb.URL(), api.WithTokenSource(tokens), api.WithTimeout(5*time.Second))
	session := bagger.NewSession(client, tokens, clock, logger, testRetry)
	store := bagger.NewDataStore(client, st, clock, logger, bagger.DefaultCacheTTL, testRetry)
	session.OnReset(store.Forget)
	client.OnUnauthorized(session.ForceLogout)

	t.Cleanup(store.Wait)

	return &harness{
		backend: fb,
		storage: st,
		clock:   clock,
		tokens:  tokens,
		client:  client,
		session: session,
		store:   store,
		user:    user,
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.session.Login(context.Background(), h.user.Email, testPassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func (h *harness) open(t *testing.T) {
	t.Helper()
	h.login(t)
	if err := h.store.Open(context.Background(), h.user.ID); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
}

// writeCache stores snap for the harness user as if written age ago.
func (h *harness) writeCache(t *testing.T, snap model.CacheSnapshot, age time.Duration) {
	t.Helper()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := h.storage.Set(bagger.CacheKey(h.user.ID), string(data)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	stamp := strconv.FormatInt(h.clock.Now().Add(-age).UnixMilli(), 10)
	if err := h.storage.Set(bagger.CacheTimeKey(h.user.ID), stamp); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func (h *harness) readCache(t *testing.T) (model.CacheSnapshot, bool) {
	t.Helper()
	blob, ok, err := h.storage.Get(bagger.CacheKey(h.user.ID))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		return model.CacheSnapshot{}, false
	}
	var snap model.CacheSnapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		t.Fatalf("cached blob is not valid JSON: %v", err)
	}
	return snap, true
}

func cheatTitles(cheats []model.Cheat) []string {
	out := make([]string, len(cheats))
	for i, c := range cheats {
		out[i] = c.Title
	}
	return out
}

func ptr[T any](v T) *T { return &v }
