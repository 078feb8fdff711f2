package bagger

import (
	"context"
	"fmt"
	"slices"

	"bagger/internal/apperror"
	"bagger/internal/model"
)

// Mutations follow one rule set:
//   - create: refetch the whole library after the server accepts it
//   - update: patch the local copy from the server's answer, or from the
//     submitted patch when the server answers without a body
//   - delete: drop the local copy after the server accepts it
//
// Invalid input never reaches the backend. A failed request leaves local
// state untouched and is recorded in Status().Err.

// CreatePlatform validates and creates a platform.
func (s *DataStore) CreatePlatform(ctx context.Context, in model.PlatformInput) (*model.Platform, error) {
	in = NormalizePlatformInput(in)
	if err := ValidatePlatformInput(in); err != nil {
		return nil, err
	}
	release, gen, err := s.begin("platform:new")
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.backend.CreatePlatform(ctx, in)
	if err != nil {
		return nil, s.fail(gen, "creating platform", err)
	}
	s.logger.Info("platform created", "name", in.Name)
	s.refetch(ctx)
	return created, nil
}

// UpdatePlatform validates and applies a partial update to platform id.
func (s *DataStore) UpdatePlatform(ctx context.Context, id int64, patch model.PlatformPatch) (*model.Platform, error) {
	patch = NormalizePlatformPatch(patch)
	if err := ValidatePlatformPatch(patch); err != nil {
		return nil, err
	}
	release, gen, err := s.begin(entityKey("platform", id))
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.backend.UpdatePlatform(ctx, id, patch)
	if err != nil {
		return nil, s.fail(gen, "updating platform", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return updated, nil
	}
	for i, p := range s.platforms {
		if p.ID != id {
			continue
		}
		if updated != nil {
			s.platforms[i] = *updated
		} else {
			s.platforms[i] = patch.Apply(p)
		}
		out := s.platforms[i]
		updated = &out
		break
	}
	s.persistLocked()
	return updated, nil
}

// DeletePlatform deletes platform id. Servers usually refuse while cheats
// still reference it; that message is returned as-is.
func (s *DataStore) DeletePlatform(ctx context.Context, id int64) error {
	release, gen, err := s.begin(entityKey("platform", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.backend.DeletePlatform(ctx, id); err != nil {
		return s.fail(gen, "deleting platform", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.platforms = slices.DeleteFunc(s.platforms, func(p model.Platform) bool { return p.ID == id })
	s.persistLocked()
	return nil
}

// CreateTopic validates and creates a topic.
func (s *DataStore) CreateTopic(ctx context.Context, in model.TopicInput) (*model.Topic, error) {
	in = NormalizeTopicInput(in)
	if err := ValidateTopicInput(in); err != nil {
		return nil, err
	}
	release, gen, err := s.begin("topic:new")
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.backend.CreateTopic(ctx, in)
	if err != nil {
		return nil, s.fail(gen, "creating topic", err)
	}
	s.logger.Info("topic created", "name", in.Name)
	s.refetch(ctx)
	return created, nil
}

// UpdateTopic validates and applies a partial update to topic id.
func (s *DataStore) UpdateTopic(ctx context.Context, id int64, patch model.TopicPatch) (*model.Topic, error) {
	patch = NormalizeTopicPatch(patch)
	if err := ValidateTopicPatch(patch); err != nil {
		return nil, err
	}
	release, gen, err := s.begin(entityKey("topic", id))
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.backend.UpdateTopic(ctx, id, patch)
	if err != nil {
		return nil, s.fail(gen, "updating topic", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return updated, nil
	}
	for i, t := range s.topics {
		if t.ID != id {
			continue
		}
		if updated != nil {
			s.topics[i] = *updated
		} else {
			s.topics[i] = patch.Apply(t)
		}
		out := s.topics[i]
		updated = &out
		break
	}
	s.persistLocked()
	return updated, nil
}

// DeleteTopic deletes topic id.
func (s *DataStore) DeleteTopic(ctx context.Context, id int64) error {
	release, gen, err := s.begin(entityKey("topic", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.backend.DeleteTopic(ctx, id); err != nil {
		return s.fail(gen, "deleting topic", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.topics = slices.DeleteFunc(s.topics, func(t model.Topic) bool { return t.ID == id })
	s.persistLocked()
	return nil
}

// CreateCheat validates and creates a cheat.
func (s *DataStore) CreateCheat(ctx context.Context, in model.CheatInput) (*model.Cheat, error) {
	in = NormalizeCheatInput(in)
	if err := ValidateCheatInput(in); err != nil {
		return nil, err
	}
	release, gen, err := s.begin("cheat:new")
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.backend.CreateCheat(ctx, in)
	if err != nil {
		return nil, s.fail(gen, "creating cheat", err)
	}
	s.logger.Info("cheat created", "title", in.Title)
	s.refetch(ctx)
	return created, nil
}

// UpdateCheat validates and applies a partial update to cheat id.
func (s *DataStore) UpdateCheat(ctx context.Context, id int64, patch model.CheatPatch) (*model.Cheat, error) {
	patch = NormalizeCheatPatch(patch)
	if err := ValidateCheatPatch(patch); err != nil {
		return nil, err
	}
	release, gen, err := s.begin(entityKey("cheat", id))
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.backend.UpdateCheat(ctx, id, patch)
	if err != nil {
		return nil, s.fail(gen, "updating cheat", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return updated, nil
	}
	for i, c := range s.cheats {
		if c.ID != id {
			continue
		}
		if updated != nil {
			s.cheats[i] = cloneCheat(*updated)
		} else {
			s.cheats[i] = patch.Apply(c)
		}
		out := cloneCheat(s.cheats[i])
		updated = &out
		break
	}
	s.persistLocked()
	return updated, nil
}

// DeleteCheat deletes cheat id.
func (s *DataStore) DeleteCheat(ctx context.Context, id int64) error {
	release, gen, err := s.begin(entityKey("cheat", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.backend.DeleteCheat(ctx, id); err != nil {
		return s.fail(gen, "deleting cheat", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.cheats = slices.DeleteFunc(s.cheats, func(c model.Cheat) bool { return c.ID == id })
	s.userCheats = slices.DeleteFunc(s.userCheats, func(uc model.UserCheat) bool { return uc.CheatID == id })
	s.persistLocked()
	return nil
}

// begin claims the mutation key and returns its release func and the
// current generation. A key already in flight fails with ErrBusy.
func (s *DataStore) begin(key string) (func(), uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == 0 {
		return nil, 0, ErrNotOpen
	}
	if _, busy := s.inflight[key]; busy {
		return nil, 0, apperror.Busy(key)
	}
	s.inflight[key] = struct{}{}
	release := func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}
	return release, s.gen, nil
}

// fail records err as the shared error and returns it wrapped.
func (s *DataStore) fail(gen uint64, op string, err error) error {
	s.mu.Lock()
	if gen == s.gen {
		s.err = err
	}
	s.mu.Unlock()
	s.logger.Warn(op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// refetch reloads the library after a successful create. Its failure does
// not undo the create; it is recorded in Status().Err.
func (s *DataStore) refetch(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refetch after create failed", "error", err)
	}
}

func entityKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
