package bagger_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"testing"
	"time"

	"bagger/internal/apperror"
	"bagger/internal/bagger"
	"bagger/internal/model"
	"bagger/internal/testutil"
)

const bootstrapPath = "/api/users/bootstrap"

func TestDataStore_Open(t *testing.T) {
	t.Run("fetches and writes through to the cache", func(t *testing.T) {
		h := newHarness(t)
		h.open(t)

		if got := h.backend.Requests(http.MethodGet, bootstrapPath); got != 1 {
			t.Errorf("bootstrap requests = %d, want 1", got)
		}
		if got := cheatTitles(h.store.Cheats()); len(got) != 2 {
			t.Fatalf("Cheats() = %v, want 2 cheats", got)
		}

		snap, ok := h.readCache(t)
		if !ok {
			t.Fatal("cache not written")
		}
		if len(snap.Cheats) != 2 || len(snap.Platforms) != 2 || len(snap.Topics) != 2 {
			t.Errorf("cached snapshot = %+v", snap)
		}
		stamp, _, _ := h.storage.Get(bagger.CacheTimeKey(h.user.ID))
		if want := strconv.FormatInt(h.clock.Now().UnixMilli(), 10); stamp != want {
			t.Errorf("cache time = %s, want %s", stamp, want)
		}

		st := h.store.Status()
		if st.Loading || st.Refreshing || st.Err != nil {
			t.Errorf("Status() = %+v, want idle", st)
		}
		if !st.LastSync.Equal(h.clock.Now()) {
			t.Errorf("LastSync = %v, want %v", st.LastSync, h.clock.Now())
		}
	})

	t.Run("cache freshness boundary", func(t *testing.T) {
		cached := model.CacheSnapshot{
			Cheats: []model.Cheat{{ID: 900, Title: "Cached cheat", Code: "cached"}},
		}

		tests := []struct {
			name      string
			age       time.Duration
			wantFresh bool
		}{
			{name: "just written", age: 0, wantFresh: true},
			{name: "exactly ttl old", age: bagger.DefaultCacheTTL, wantFresh: true},
			{name: "one millisecond past ttl", age: bagger.DefaultCacheTTL + time.Millisecond, wantFresh: false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				h.login(t)
				h.writeCache(t, cached, tt.age)

				var release func()
				if tt.wantFresh {
					_, release = h.backend.Hold(http.MethodGet, bootstrapPath)
					t.Cleanup(release)
				}

				if err := h.store.Open(context.Background(), h.user.ID); err != nil {
					t.Fatalf("Open() error = %v", err)
				}

				titles := cheatTitles(h.store.Cheats())
				if tt.wantFresh {
					if !slices.Equal(titles, []string{"Cached cheat"}) {
						t.Fatalf("Cheats() = %v, want cached snapshot", titles)
					}
					if !h.store.Status().Refreshing {
						t.Error("Status().Refreshing = false, want true while revalidating")
					}
					release()
					h.store.Wait()
				}

				titles = cheatTitles(h.store.Cheats())
				if !slices.Equal(titles, []string{"Start a goroutine", "Run a container"}) {
					t.Errorf("Cheats() = %v, want server data", titles)
				}
				if got := h.backend.Requests(http.MethodGet, bootstrapPath); got != 1 {
					t.Errorf("bootstrap requests = %d, want 1", got)
				}
				if h.store.Status().Refreshing {
					t.Error("Status().Refreshing = true after sync")
				}
			})
		}
	})

	t.Run("corrupt cache is deleted", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.writeCache(t, model.CacheSnapshot{}, 0)
		if err := h.storage.Set(bagger.CacheKey(h.user.ID), "{not json"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		for range 2 {
			h.backend.FailNext(http.MethodGet, bootstrapPath, http.StatusInternalServerError, `{"detail":"boom"}`)
		}

		err := h.store.Open(context.Background(), h.user.ID)
		if err == nil {
			t.Fatal("Open() expected error")
		}
		if got := apperror.Message(err); got != "boom" {
			t.Errorf("Message() = %q, want %q", got, "boom")
		}
		for _, key := range []string{bagger.CacheKey(h.user.ID), bagger.CacheTimeKey(h.user.ID)} {
			if _, ok, _ := h.storage.Get(key); ok {
				t.Errorf("%s still present after corrupt read", key)
			}
		}
		if h.store.Status().Err == nil {
			t.Error("Status().Err = nil, want bootstrap error")
		}
	})

	t.Run("bootstrap is retried", func(t *testing.T) {
		h := newHarness(t)
		h.backend.FailNext(http.MethodGet, bootstrapPath, http.StatusBadGateway, "")
		h.open(t)

		if got := h.backend.Requests(http.MethodGet, bootstrapPath); got != 2 {
			t.Errorf("bootstrap requests = %d, want 2", got)
		}
		if len(h.store.Cheats()) != 2 {
			t.Errorf("Cheats() has %d items, want 2", len(h.store.Cheats()))
		}
	})

	t.Run("switching user resets the previous one", func(t *testing.T) {
		h := newHarness(t)
		h.open(t)

		other := h.backend.AddUser("Grace", "grace@example.com", testPassword)
		if err := h.session.Login(context.Background(), other.Email, testPassword); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if err := h.store.Open(context.Background(), other.ID); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, ok := h.readCache(t); ok {
			t.Error("previous user's cache survived the switch")
		}
		if got := h.store.UserID(); got != other.ID {
			t.Errorf("UserID() = %d, want %d", got, other.ID)
		}
	})
}

func TestDataStore_UnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	h.open(t)

	h.backend.FailNext(http.MethodGet, bootstrapPath, http.StatusUnauthorized, `{"detail":"Token expired"}`)

	err := h.store.Refresh(context.Background())
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Refresh() error = %v, want ErrUnauthorized", err)
	}
	if got := h.session.State(); got != bagger.Anonymous {
		t.Errorf("State() = %v, want anonymous", got)
	}
	if h.tokens.Token() != "" {
		t.Error("token survived a 401")
	}
	if _, ok, _ := h.storage.Get(bagger.TokenKey); ok {
		t.Error("persisted token survived a 401")
	}
	if _, ok := h.readCache(t); ok {
		t.Error("cache survived a 401")
	}
	if h.store.UserID() != 0 || len(h.store.Cheats()) != 0 {
		t.Errorf("store not reset: user %d, %d cheats", h.store.UserID(), len(h.store.Cheats()))
	}
	if got := h.backend.Requests(http.MethodGet, bootstrapPath); got != 2 {
		t.Errorf("bootstrap requests = %d, want 2 (401 is not retried)", got)
	}
}

func TestDataStore_StaleResponseDroppedAfterReset(t *testing.T) {
	h := newHarness(t)
	h.open(t)

	entered, release := h.backend.Hold(http.MethodGet, bootstrapPath)
	t.Cleanup(release)

	done := make(chan error, 1)
	go func() {
		done <- h.store.Refresh(context.Background())
	}()

	<-entered
	h.store.Reset()
	release()

	if err := <-done; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n := len(h.store.Cheats()); n != 0 {
		t.Errorf("Cheats() has %d items after reset, want 0", n)
	}
	if _, ok := h.readCache(t); ok {
		t.Error("stale response was written to the cache")
	}
}

func TestDataStore_NotOpen(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	if _, err := h.store.CreateTopic(context.Background(), model.TopicInput{Name: "Testing"}); !errors.Is(err, bagger.ErrNotOpen) {
		t.Errorf("CreateTopic() error = %v, want ErrNotOpen", err)
	}
	if err := h.store.Refresh(context.Background()); !errors.Is(err, bagger.ErrNotOpen) {
		t.Errorf("Refresh() error = %v, want ErrNotOpen", err)
	}
}

func TestDataStore_Lookups(t *testing.T) {
	h := newHarness(t)
	h.backend.AddFavorite(h.user.ID, 100)
	h.open(t)

	if p, ok := h.store.Platform(2); !ok || p.Name != "Docker" {
		t.Errorf("Platform(2) = %+v, %v", p, ok)
	}
	if _, ok := h.store.Topic(99); ok {
		t.Error("Topic(99) found, want missing")
	}
	c, ok := h.store.Cheat(100)
	if !ok {
		t.Fatal("Cheat(100) missing")
	}
	c.PlatformIDs[0] = 42
	if again, _ := h.store.Cheat(100); again.PlatformIDs[0] != 1 {
		t.Error("Cheat() returned a slice aliasing store state")
	}
	if !h.store.IsFavorite(100) || h.store.IsFavorite(101) {
		t.Error("IsFavorite() does not reflect user cheats")
	}
}

func TestDataStore_CacheOutlivesStore(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	sqlite := testutil.NewTestSQLiteStorage(t)
	newStore := func() *bagger.DataStore {
		s := bagger.NewDataStore(h.client, sqlite, h.clock, bagger.NewNopLogger(), bagger.DefaultCacheTTL, testRetry)
		t.Cleanup(s.Wait)
		return s
	}
	failBootstrap := func() {
		for range testRetry.Attempts {
			h.backend.FailNext(http.MethodGet, bootstrapPath, http.StatusServiceUnavailable, "")
		}
	}

	if err := newStore().Open(ctx, h.user.ID); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Within the ttl a new store serves the cache even though the backend is down.
	h.clock.Advance(4 * time.Minute)
	failBootstrap()
	second := newStore()
	if err := second.Open(ctx, h.user.ID); err != nil {
		t.Fatalf("Open() with fresh cache error = %v", err)
	}
	if got := len(second.Cheats()); got != 2 {
		t.Errorf("len(Cheats()) = %d, want 2 from cache", got)
	}
	second.Wait()
	if second.Status().Err == nil {
		t.Error("Status().Err = nil, want background refresh error")
	}

	// Past the ttl the cache no longer counts and the failure surfaces.
	h.clock.Advance(2 * time.Minute)
	failBootstrap()
	if err := newStore().Open(ctx, h.user.ID); err == nil {
		t.Fatal("Open() with stale cache expected error")
	}
}
