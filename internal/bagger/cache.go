package bagger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bagger/internal/model"
)

// DefaultCacheTTL is how long a snapshot stays usable.
const DefaultCacheTTL = 5 * time.Minute

// CacheKey is the storage key of userID's snapshot.
func CacheKey(userID int64) string {
	return fmt.Sprintf("bagger_cache_u%d", userID)
}

// CacheTimeKey is the storage key of the snapshot's write time, in epoch milliseconds.
func CacheTimeKey(userID int64) string {
	return CacheKey(userID) + "_time"
}

// snapshotCache reads and writes per-user snapshots. A snapshot is usable
// while its age is at most ttl.
type snapshotCache struct {
	storage Storage
	clock   Clock
	ttl     time.Duration
	logger  Logger
}

// load returns the fresh snapshot for userID, or false if there is none.
// A snapshot that fails to decode is deleted.
func (c *snapshotCache) load(userID int64) (*model.CacheSnapshot, bool) {
	blob, ok, err := c.storage.Get(CacheKey(userID))
	if err != nil {
		c.logger.Warn("reading cache failed", "user_id", userID, "error", err)
		return nil, false
	}
	if !ok || blob == "" {
		return nil, false
	}

	stamp, ok, err := c.storage.Get(CacheTimeKey(userID))
	if err != nil || !ok {
		return nil, false
	}
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, false
	}

	age := c.clock.Now().Sub(time.UnixMilli(ms))
	if age > c.ttl {
		c.logger.Debug("cache stale", "user_id", userID, "age", age)
		return nil, false
	}

	var snap model.CacheSnapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		c.logger.Warn("discarding corrupt cache", "user_id", userID, "error", err)
		c.clear(userID)
		return nil, false
	}
	return &snap, true
}

// save writes snap for userID, stamped with the current time.
func (c *snapshotCache) save(userID int64, snap model.CacheSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := c.storage.Set(CacheKey(userID), string(data)); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	stamp := strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
	if err := c.storage.Set(CacheTimeKey(userID), stamp); err != nil {
		return fmt.Errorf("writing cache time: %w", err)
	}
	return nil
}

func (c *snapshotCache) clear(userID int64) {
	if err := c.storage.Delete(CacheKey(userID), CacheTimeKey(userID)); err != nil {
		c.logger.Warn("clearing cache failed", "user_id", userID, "error", err)
	}
}
