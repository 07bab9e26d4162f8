// Package lock implements the per-dataset advisory lock on Redis.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// DefaultTTL bounds how long a crashed holder can keep a dataset locked.
const DefaultTTL = 30 * time.Minute

// store is the consumer interface for locks (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
}

// Locker hands out dataset locks.
type Locker struct {
	store store
	ttl   time.Duration
	token func() string
}

// New creates a Locker. A non-positive ttl uses DefaultTTL.
func New(s store, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{store: s, ttl: ttl, token: uuid.NewString}
}

// Lease is a held lock. Release is idempotent.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Acquire takes the lock of a dataset or returns domain.ErrStageBusy when it is held.
func (l *Locker) Acquire(ctx context.Context, datasetID uuid.UUID) (*Lease, error) {
	key := lockKey(datasetID)
	token := l.token()

	ok, err := l.store.SetNX(ctx, key, []byte(token), l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", datasetID, err)
	}
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, domain.ErrStageBusy)
	}
	return &Lease{locker: l, key: key, token: token}, nil
}

// Release deletes the lock if this lease still owns it. It reports whether
// the key was removed; an expired or stolen lock yields false.
func (le *Lease) Release(ctx context.Context) (bool, error) {
	if le == nil || le.token == "" {
		return false, nil
	}
	ok, err := le.locker.store.CompareAndDelete(ctx, le.key, []byte(le.token))
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", le.key, err)
	}
	le.token = ""
	return ok, nil
}

func lockKey(datasetID uuid.UUID) string {
	return domain.KeyPrefix + "lock:dataset:" + datasetID.String()
}
