package bagger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"bagger/internal/api"
	"bagger/internal/model"
)

var ErrNotOpen = errors.New("library is not open: log in first")

// Status is a point-in-time view of the DataStore's sync state.
type Status struct {
	UserID     int64
	Loading    bool
	Refreshing bool
	Err        error
	LastSync   time.Time
}

// DataStore holds the signed-in user's platforms, topics, cheats and
// favorites, backed by the per-user cache snapshot.
//
// The mutex is never held across backend calls. Every reset bumps gen, and
// any response that started under an older gen is dropped.
type DataStore struct {
	backend DataBackend
	cache   *snapshotCache
	clock   Clock
	logger  Logger
	retry   api.RetryPolicy

	mu         sync.RWMutex
	gen        uint64
	userID     int64
	loading    bool
	refreshing bool
	err        error
	lastSync   time.Time
	platforms  []model.Platform
	topics     []model.Topic
	cheats     []model.Cheat
	userCheats []model.UserCheat
	inflight   map[string]struct{}
	cancelBg   context.CancelFunc

	wg sync.WaitGroup
}

// NewDataStore creates an idle DataStore.
func NewDataStore(backend DataBackend, storage Storage, clock Clock, logger Logger, ttl time.Duration, retry api.RetryPolicy) *DataStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DataStore{
		backend:  backend,
		cache:    &snapshotCache{storage: storage, clock: clock, ttl: ttl, logger: logger},
		clock:    clock,
		logger:   logger,
		retry:    retry,
		inflight: make(map[string]struct{}),
	}
}

// Open loads userID's library. A fresh cache snapshot is served immediately
// and revalidated in the background; otherwise Open blocks on the bootstrap
// request and returns its error.
func (s *DataStore) Open(ctx context.Context, userID int64) error {
	if current := s.UserID(); current != 0 && current != userID {
		s.Reset()
	}

	snap, fresh := s.cache.load(userID)

	s.mu.Lock()
	s.userID = userID
	s.err = nil
	gen := s.gen

	if fresh {
		s.applyLocked(snap.Platforms, snap.Topics, snap.Cheats, snap.UserCheats)
		s.loading = false
		s.refreshing = true
		bgCtx, cancel := context.WithCancel(ctx)
		s.cancelBg = cancel
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Debug("serving cached library", "user_id", userID)
		go func() {
			defer s.wg.Done()
			defer cancel()
			if err := s.sync(bgCtx, gen, userID); err != nil {
				s.logger.Warn("background refresh failed", "user_id", userID, "error", err)
			}
		}()
		return nil
	}

	s.loading = true
	s.mu.Unlock()

	b, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("dropping stale bootstrap", "user_id", userID)
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err
		return fmt.Errorf("loading library: %w", err)
	}
	s.applyLocked(b.Platforms, b.Topics, b.Cheats, b.UserCheats)
	s.lastSync = s.clock.Now()
	s.persistLocked()
	return nil
}

// Wait blocks until any background refresh started by Open has finished.
func (s *DataStore) Wait() {
	s.wg.Wait()
}

// Refresh refetches the library, ignoring cache freshness.
func (s *DataStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == 0 {
		s.mu.Unlock()
		return ErrNotOpen
	}
	gen, userID := s.gen, s.userID
	s.refreshing = true
	s.mu.Unlock()

	if err := s.sync(ctx, gen, userID); err != nil {
		return fmt.Errorf("refreshing library: %w", err)
	}
	return nil
}

// sync fetches the bootstrap payload and installs it if gen is still current.
func (s *DataStore) sync(ctx context.Context, gen uint64, userID int64) error {
	b, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || userID != s.userID {
		s.logger.Debug("dropping stale bootstrap", "user_id", userID)
		return err
	}
	s.refreshing = false
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	s.err = nil
	s.applyLocked(b.Platforms, b.Topics, b.Cheats, b.UserCheats)
	s.lastSync = s.clock.Now()
	s.persistLocked()
	s.logger.Debug("library synced", "user_id", userID,
		"platforms", len(b.Platforms), "topics", len(b.Topics), "cheats", len(b.Cheats))
	return nil
}

func (s *DataStore) fetch(ctx context.Context) (*model.Bootstrap, error) {
	var b *model.Bootstrap
	err := api.Retry(ctx, s.retry, func(ctx context.Context) error {
		res, err := s.backend.Bootstrap(ctx)
		if err != nil {
			return err
		}
		b = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = &model.Bootstrap{}
	}
	return b, nil
}

// Reset forgets the current user: the cache snapshot is deleted, in-memory
// collections are emptied and in-flight responses will be ignored.
func (s *DataStore) Reset() {
	s.mu.Lock()
	userID := s.userID
	s.gen++
	if s.cancelBg != nil {
		s.cancelBg()
		s.cancelBg = nil
	}
	s.userID = 0
	s.loading = false
	s.refreshing = false
	s.err = nil
	s.lastSync = time.Time{}
	s.platforms = nil
	s.topics = nil
	s.cheats = nil
	s.userCheats = nil
	s.mu.Unlock()

	if userID != 0 {
		s.cache.clear(userID)
		s.logger.Debug("library reset", "user_id", userID)
	}
}

// Forget resets the store and deletes userID's cache snapshot even when
// that user's library was never opened in this process.
func (s *DataStore) Forget(userID int64) {
	s.Reset()
	if userID != 0 {
		s.cache.clear(userID)
		s.logger.Debug("cache forgotten", "user_id", userID)
	}
}

// Status returns the current sync state.
func (s *DataStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		UserID:     s.userID,
		Loading:    s.loading,
		Refreshing: s.refreshing,
		Err:        s.err,
		LastSync:   s.lastSync,
	}
}

// UserID returns the id of the open user, or 0.
func (s *DataStore) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *DataStore) Platforms() []model.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.platforms)
}

func (s *DataStore) Topics() []model.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.topics)
}

func (s *DataStore) Cheats() []model.Cheat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Cheat, len(s.cheats))
	for i, c := range s.cheats {
		out[i] = cloneCheat(c)
	}
	return out
}

func (s *DataStore) UserCheats() []model.UserCheat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userCheats)
}

// Snapshot returns a copy of all four collections.
func (s *DataStore) Snapshot() model.CacheSnapshot {
	return model.CacheSnapshot{
		Platforms:  s.Platforms(),
		Topics:     s.Topics(),
		Cheats:     s.Cheats(),
		UserCheats: s.UserCheats(),
	}
}

// Platform looks up a platform by id.
func (s *DataStore) Platform(id int64) (model.Platform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return model.Platform{}, false
}

// Topic looks up a topic by id.
func (s *DataStore) Topic(id int64) (model.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.topics {
		if t.ID == id {
			return t, true
		}
	}
	return model.Topic{}, false
}

// Cheat looks up a cheat by id.
func (s *DataStore) Cheat(id int64) (model.Cheat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cheats {
		if c.ID == id {
			return cloneCheat(c), true
		}
	}
	return model.Cheat{}, false
}

// IsFavorite reports whether the user marked cheatID as a favorite.
func (s *DataStore) IsFavorite(cheatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uc := range s.userCheats {
		if uc.CheatID == cheatID && uc.IsFavorite {
			return true
		}
	}
	return false
}

func (s *DataStore) applyLocked(platforms []model.Platform, topics []model.Topic, cheats []model.Cheat, userCheats []model.UserCheat) {
	s.platforms = slices.Clone(platforms)
	s.topics = slices.Clone(topics)
	s.cheats = make([]model.Cheat, len(cheats))
	for i, c := range cheats {
		s.cheats[i] = cloneCheat(c)
	}
	s.userCheats = slices.Clone(userCheats)
}

// persistLocked writes the in-memory collections through to the cache.
func (s *DataStore) persistLocked() {
	if s.userID == 0 {
		return
	}
	snap := model.CacheSnapshot{
		Platforms:  s.platforms,
		Topics:     s.topics,
		Cheats:     s.cheats,
		UserCheats: s.userCheats,
	}
	if err := s.cache.save(s.userID, snap); err != nil {
		s.logger.Warn("writing cache failed", "user_id", s.userID, "error", err)
	}
}

func cloneCheat(c model.Cheat) model.Cheat {
	c.PlatformIDs = slices.Clone(c.PlatformIDs)
	c.TopicIDs = slices.Clone(c.TopicIDs)
	return c
}
