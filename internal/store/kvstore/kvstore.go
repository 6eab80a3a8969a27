// Package kvstore keeps each collection as one JSON document in a key-value backend,
// the way the portal originally kept them in browser storage.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"internship/internal/model"
	"internship/internal/store"
)

const (
	keyRequests = "requests"
	keyCheckins = "checkins"
	keyHistory  = "history"
)

// Store implements store.Store over a Backend.
type Store struct {
	backend Backend
	prefix  string
	logger  zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a document store; prefix namespaces the collection keys.
func New(b Backend, prefix string, logger zerolog.Logger) *Store {
	return &Store{backend: b, prefix: prefix, logger: logger.With().Str("component", "kvstore").Logger()}
}

func (s *Store) key(name string) string { return s.prefix + name }

// Healthy verifies backend connectivity.
func (s *Store) Healthy(ctx context.Context) bool {
	return s.backend.Ping(ctx) == nil
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

func load[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	raw, err := s.backend.Get(ctx, s.key(name))
	if err != nil {
		return nil, store.Failure("load "+name, err)
	}
	return decode[T](name, raw)
}

func decode[T any](name string, raw []byte) ([]T, error) {
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, store.Failure("decode "+name, err)
	}
	return out, nil
}

func save[T any](ctx context.Context, s *Store, name string, all []T) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return store.Failure("encode "+name, err)
	}
	if err := s.backend.Set(ctx, s.key(name), raw); err != nil {
		return store.Failure("save "+name, err)
	}
	return nil
}

// mutate runs fn on the decoded collection inside one atomic backend update.
func mutate[T any](ctx context.Context, s *Store, name string, fn func([]T) ([]T, error)) error {
	err := s.backend.Update(ctx, s.key(name), func(cur []byte) ([]byte, error) {
		all, err := decode[T](name, cur)
		if err != nil {
			return nil, err
		}
		next, err := fn(all)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("collection", name).Msg("write rejected")
	}
	return store.Failure("update "+name, err)
}

// LoadRequests returns the whole request collection.
func (s *Store) LoadRequests(ctx context.Context) ([]model.Request, error) {
	return load[model.Request](ctx, s, keyRequests)
}

// SaveRequests replaces the whole request collection.
func (s *Store) SaveRequests(ctx context.Context, all []model.Request) error {
	seen := make(map[string]struct{}, len(all))
	for _, r := range all {
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: request ids must be unique", store.ErrDuplicate)
		}
		seen[r.ID] = struct{}{}
	}
	return save(ctx, s, keyRequests, all)
}

// GetRequest returns a single request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (model.Request, error) {
	all, err := s.LoadRequests(ctx)
	if err != nil {
		return model.Request{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Request{}, store.ErrNotFound
}

// InsertRequest appends a new request.
func (s *Store) InsertRequest(ctx context.Context, r model.Request) error {
	return s.InsertRequestIf(ctx, r, nil)
}

// InsertRequestIf appends r when check accepts the collection it is appended to.
func (s *Store) InsertRequestIf(ctx context.Context, r model.Request, check func([]model.Request) error) error {
	var vetoed error
	err := mutate(ctx, s, keyRequests, func(all []model.Request) ([]model.Request, error) {
		vetoed = nil
		if check != nil {
			if err := check(all); err != nil {
				vetoed = err
				return nil, err
			}
		}
		for _, existing := range all {
			if existing.ID == r.ID {
				return nil, fmt.Errorf("%w: request %s exists", store.ErrDuplicate, r.ID)
			}
		}
		return append(all, r), nil
	})
	if vetoed != nil {
		return vetoed
	}
	return err
}

// UpdateRequest replaces a request when its stored version is still expectedVersion.
func (s *Store) UpdateRequest(ctx context.Context, r model.Request, expectedVersion int64) error {
	return mutate(ctx, s, keyRequests, func(all []model.Request) ([]model.Request, error) {
		for i, existing := range all {
			if existing.ID != r.ID {
				continue
			}
			if existing.Version != expectedVersion {
				return nil, fmt.Errorf("%w: request %s is at version %d, not %d", store.ErrConflict, r.ID, existing.Version, expectedVersion)
			}
			all[i] = r
			return all, nil
		}
		return nil, store.ErrNotFound
	})
}

// LoadCheckins returns the whole check-in collection.
func (s *Store) LoadCheckins(ctx context.Context) ([]model.CheckinEntry, error) {
	return load[model.CheckinEntry](ctx, s, keyCheckins)
}

// SaveCheckins replaces the whole check-in collection.
func (s *Store) SaveCheckins(ctx context.Context, all []model.CheckinEntry) error {
	if err := store.CheckUniqueCheckins(all); err != nil {
		return err
	}
	return save(ctx, s, keyCheckins, all)
}

// GetCheckin returns a single check-in by id.
func (s *Store) GetCheckin(ctx context.Context, id string) (model.CheckinEntry, error) {
	all, err := s.LoadCheckins(ctx)
	if err != nil {
		return model.CheckinEntry{}, err
	}
	for _, c := range all {
		if c.ID == id {
			return c, nil
		}
	}
	return model.CheckinEntry{}, store.ErrNotFound
}

// InsertCheckin appends a check-in unless the student already has one that date.
func (s *Store) InsertCheckin(ctx context.Context, c model.CheckinEntry) error {
	return mutate(ctx, s, keyCheckins, func(all []model.CheckinEntry) ([]model.CheckinEntry, error) {
		for _, existing := range all {
			if existing.ID == c.ID {
				return nil, fmt.Errorf("%w: check-in %s exists", store.ErrDuplicate, c.ID)
			}
		}
		next := append(all, c)
		if err := store.CheckUniqueCheckins(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// UpdateCheckin overwrites an existing check-in, keeping the uniqueness rule.
func (s *Store) UpdateCheckin(ctx context.Context, c model.CheckinEntry) error {
	return mutate(ctx, s, keyCheckins, func(all []model.CheckinEntry) ([]model.CheckinEntry, error) {
		for i, existing := range all {
			if existing.ID != c.ID {
				continue
			}
			all[i] = c
			if err := store.CheckUniqueCheckins(all); err != nil {
				return nil, err
			}
			return all, nil
		}
		return nil, store.ErrNotFound
	})
}

// DeleteCheckin removes a check-in.
func (s *Store) DeleteCheckin(ctx context.Context, id string) error {
	return mutate(ctx, s, keyCheckins, func(all []model.CheckinEntry) ([]model.CheckinEntry, error) {
		for i, existing := range all {
			if existing.ID == id {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, store.ErrNotFound
	})
}

// AppendHistory records a transition; a redelivered entry is ignored.
func (s *Store) AppendHistory(ctx context.Context, h model.HistoryEntry) error {
	return mutate(ctx, s, keyHistory, func(all []model.HistoryEntry) ([]model.HistoryEntry, error) {
		for _, existing := range all {
			if existing.ID == h.ID {
				return all, nil
			}
		}
		return append(all, h), nil
	})
}

// ListHistory returns a request's transitions oldest first.
func (s *Store) ListHistory(ctx context.Context, requestID string) ([]model.HistoryEntry, error) {
	all, err := load[model.HistoryEntry](ctx, s, keyHistory)
	if err != nil {
		return nil, err
	}
	out := []model.HistoryEntry{}
	for _, h := range all {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}
