// Package repository defines the key-value storage the journal persists to.
//
// The journal keeps each logical collection (all experiences, the user's
// preferences, the achievement ledger) as ONE serialized value under ONE key.
// A backend therefore only needs whole-value get / set / delete; it never sees
// individual records and never needs an index.
//
// Implementations live in sub-packages:
//
//	repository/memory  map in process memory (tests, throwaway runs)
//	repository/sqlite  single kv table in a SQLite file (default)
//	repository/redis   one Redis string per key
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sakif/cultural-expo/internal/apperror"
)

// Logical storage keys.
const (
	KeyExperiences  = "experiences"
	KeyPreferences  = "preferences"
	KeyAchievements = "achievements"
)

// KeyValueStore is the storage backend interface.
//
// Get returns an error wrapping apperror.ErrNotFound when the key is absent.
// Set replaces the whole value atomically; Delete of an absent key is not an
// error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// quotaStore enforces one byte budget shared by every value in front of
// another backend, the way browser storage counts one quota per origin.
type quotaStore struct {
	KeyValueStore
	limit int

	mu sync.Mutex
	// sizes holds the stored size of every key seen so far.
	sizes  map[string]int
	seeded bool
}

// WithQuota wraps store so that a Set which would bring the combined size of
// all stored values above maxBytes fails with apperror.ErrQuotaExceeded
// without reaching the backend. maxBytes <= 0 returns store unchanged.
//
// Values already in the backend under the logical keys count against the
// budget; they are measured on the first Set.
func WithQuota(store KeyValueStore, maxBytes int) KeyValueStore {
	if maxBytes <= 0 {
		return store
	}
	return &quotaStore{KeyValueStore: store, limit: maxBytes, sizes: make(map[string]int)}
}

func (q *quotaStore) Set(ctx context.Context, key string, value []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.seed(ctx); err != nil {
		return err
	}

	used := len(value)
	for k, n := range q.sizes {
		if k != key {
			used += n
		}
	}
	if used > q.limit {
		return fmt.Errorf("repository: setting %s: %w", key, apperror.QuotaExceeded(key, used, q.limit))
	}

	if err := q.KeyValueStore.Set(ctx, key, value); err != nil {
		return err
	}
	q.sizes[key] = len(value)
	return nil
}

func (q *quotaStore) Delete(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.KeyValueStore.Delete(ctx, key); err != nil {
		return err
	}
	delete(q.sizes, key)
	return nil
}

// seed measures the values already stored under the logical keys.
func (q *quotaStore) seed(ctx context.Context) error {
	if q.seeded {
		return nil
	}
	for _, key := range []string{KeyExperiences, KeyPreferences, KeyAchievements} {
		raw, err := q.KeyValueStore.Get(ctx, key)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return fmt.Errorf("repository: measuring %s: %w", key, err)
		}
		q.sizes[key] = len(raw)
	}
	q.seeded = true
	return nil
}
