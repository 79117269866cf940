// Package distlock guards campaign dispatch so a campaign is sent by at most
// one process at a time.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the lock was never acquired.
var ErrNotHeld = errors.New("distlock: lock not held")

// DistLock is the interface for distributed locking.
// A lock instance is owned by a single dispatch; concurrent dispatches
// create separate instances for the same key.
type DistLock interface {
	// Acquire tries to acquire the lock without blocking. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory builds locks for a given key. Services take a Factory so tests can
// substitute an in-memory backend.
type Factory func(key string) DistLock

// NewFactory returns a Factory using the best available backend.
// Redis is preferred; with a nil client it falls back to PostgreSQL advisory
// locks. With neither it returns a Factory of no-op locks.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Factory {
	return func(key string) DistLock {
		return NewLock(redisClient, db, key, ttl)
	}
}

// NewLock creates a distributed lock using the best available backend.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return noopLock{}
	}
}

// CampaignKey is the lock key for dispatching one campaign.
func CampaignKey(campaignID string) string {
	return "campaign:dispatch:" + campaignID
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

// PGAdvisoryLock implements DistLock using session-scoped PostgreSQL advisory
// locks. Advisory locks belong to a backend session, so Acquire pins one pooled
// connection and Release unlocks and returns it on that same connection.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire calls pg_try_advisory_lock on a dedicated connection.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the pinned connection and returns it to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return ErrNotHeld
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// Extender is implemented by locks that expire on their own.
type Extender interface {
	Extend(ctx context.Context, ttl time.Duration) error
}

// KeepAlive refreshes lock to ttl every ttl/3 until the returned stop func is
// called. Locks that do not expire, and a zero ttl, make it a no-op. onErr
// receives each failed refresh; after ErrNotHeld refreshing stops.
func KeepAlive(ctx context.Context, lock DistLock, ttl time.Duration, onErr func(error)) (stop func()) {
	ext, ok := lock.(Extender)
	if !ok || ttl/3 <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := ext.Extend(ctx, ttl)
				if err == nil || ctx.Err() != nil {
					continue
				}
				if onErr != nil {
					onErr(err)
				}
				if errors.Is(err, ErrNotHeld) {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
