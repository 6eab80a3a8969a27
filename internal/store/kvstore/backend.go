package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"internship/internal/store"
)

// ErrQuotaExceeded is returned when a write would grow the memory backend past its quota.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Backend holds whole collections as opaque values under string keys.
type Backend interface {
	// Get returns nil, nil for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update atomically replaces the value with fn's result. Errors from fn abort the write.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	Ping(ctx context.Context) error
	Close() error
}

// Memory is a process-local backend with an optional byte quota, mirroring browser storage.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

// NewMemory creates a memory backend; quota <= 0 disables the limit.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, value)
}

func (m *Memory) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cur []byte
	if v, ok := m.data[key]; ok {
		cur = append([]byte(nil), v...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return m.setLocked(key, next)
}

func (m *Memory) setLocked(key string, value []byte) error {
	if m.quota > 0 {
		size := len(value)
		for k, v := range m.data {
			if k != key {
				size += len(v)
			}
		}
		if size > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Redis keeps collections as plain string values; Update uses WATCH/MULTI so
// concurrent writers from other processes cannot interleave.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// maxWatchAttempts bounds retries after another writer touched the key between
// WATCH and EXEC. Each failed attempt means some other write committed.
const maxWatchAttempts = 100

func (r *Redis) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %s kept changing after %d attempts", store.ErrConflict, key, maxWatchAttempts)
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close is a no-op; the client is owned by the caller and shared with the queue.
func (r *Redis) Close() error { return nil }
