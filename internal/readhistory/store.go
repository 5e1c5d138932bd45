package readhistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"unitoku/internal/cache"
	"unitoku/internal/models"
	"unitoku/internal/observability"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 5

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ErrConflict is returned when an update keeps losing the optimistic lock.
var ErrConflict = errors.New("read history update conflicted too many times")

// Store persists one ledger per user as a JSON array in Redis.
// With a nil client every operation is a no-op.
type Store struct {
	rdb      *redis.Client
	capacity int
	now      func() time.Time
}

func NewStore(rdb *redis.Client, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{rdb: rdb, capacity: capacity, now: time.Now}
}

// Enabled reports whether the store is backed by Redis.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// List returns the user's entries, newest first.
func (s *Store) List(ctx context.Context, userID uint) ([]models.ReadHistoryEntry, error) {
	if !s.Enabled() {
		return []models.ReadHistoryEntry{}, nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "read_history.list")
	l, err := s.load(ctx, s.rdb, userID)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return l.Entries(), nil
}

// Record marks a post as read now.
func (s *Store) Record(ctx context.Context, userID uint, entry models.ReadHistoryEntry) error {
	result := "inserted"
	err := s.update(ctx, userID, func(l *Ledger) bool {
		if l.Contains(entry.PostID) {
			result = "moved"
		}
		if l.MarkAsRead(entry, s.now()) {
			result = "evicted"
		}
		return true
	})
	if err == nil && s.Enabled() {
		observability.ReadHistoryWrites.WithLabelValues(result).Inc()
	}
	return err
}

// Delete removes one post from the user's history.
func (s *Store) Delete(ctx context.Context, userID, postID uint) error {
	return s.update(ctx, userID, func(l *Ledger) bool {
		return l.Delete(postID)
	})
}

// Clear removes the user's whole history.
func (s *Store) Clear(ctx context.Context, userID uint) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Del(ctx, cache.ReadHistoryKey(userID)).Err()
}

// update applies fn under WATCH so concurrent writers never overwrite each
// other's entries. fn returns false when nothing changed.
func (s *Store) update(ctx context.Context, userID uint, fn func(*Ledger) bool) error {
	if !s.Enabled() {
		return nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "read_history.update")
	key := cache.ReadHistoryKey(userID)

	txf := func(tx *redis.Tx) error {
		l, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !fn(l) {
			return nil
		}
		payload, err := json.Marshal(l.Entries())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			observability.ReadHistoryWrites.WithLabelValues("conflict").Inc()
			continue
		}
		observability.EndSpan(span, err)
		return err
	}
	observability.EndSpan(span, ErrConflict)
	return ErrConflict
}

func (s *Store) load(ctx context.Context, r getter, userID uint) (*Ledger, error) {
	raw, err := r.Get(ctx, cache.ReadHistoryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewLedger(s.capacity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load read history: %w", err)
	}
	var entries []models.ReadHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// a corrupt blob is replaced on the next write
		return NewLedger(s.capacity), nil
	}
	return FromEntries(s.capacity, entries), nil
}
