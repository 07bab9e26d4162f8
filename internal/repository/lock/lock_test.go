package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// memStore is an in-memory SET NX / compare-and-delete.
type memStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = string(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) CompareAndDelete(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.values[key] != string(value) {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

var testID = uuid.MustParse("0b5e1c2d-3f4a-4b6c-8d7e-9f0a1b2c3d4e")

func TestAcquireRelease(t *testing.T) {
	ms := newMemStore()
	l := New(ms, time.Minute)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, testID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := "tablens:lock:dataset:" + testID.String()
	if _, ok := ms.values[key]; !ok {
		t.Fatalf("expected key %s to be set", key)
	}
	if ms.ttls[key] != time.Minute {
		t.Errorf("expected ttl 1m, got %v", ms.ttls[key])
	}

	released, err := lease.Release(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !released {
		t.Error("expected release to delete the key")
	}

	// second release is a no-op
	released, err = lease.Release(ctx)
	if err != nil || released {
		t.Errorf("expected idempotent release, got %v %v", released, err)
	}
}

func TestAcquire_HeldReturnsBusy(t *testing.T) {
	l := New(newMemStore(), 0)
	ctx := context.Background()

	if _, err := l.Acquire(ctx, testID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := l.Acquire(ctx, testID)
	if !errors.Is(err, domain.ErrStageBusy) {
		t.Fatalf("expected ErrStageBusy, got %v", err)
	}
}

func TestRelease_DoesNotDeleteForeignLock(t *testing.T) {
	ms := newMemStore()
	l := New(ms, time.Minute)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, testID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// lock expired and another holder took it
	key := lockKey(testID)
	ms.values[key] = "other-token"

	released, err := lease.Release(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released {
		t.Error("must not delete a lock held by someone else")
	}
	if ms.values[key] != "other-token" {
		t.Error("foreign lock was modified")
	}
}

func TestAcquire_StoreError(t *testing.T) {
	ms := newMemStore()
	ms.err = errors.New("connection reset")
	_, err := New(ms, time.Minute).Acquire(context.Background(), testID)
	if err == nil || errors.Is(err, domain.ErrStageBusy) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNilLeaseRelease(t *testing.T) {
	var le *Lease
	if ok, err := le.Release(context.Background()); ok || err != nil {
		t.Errorf("expected no-op, got %v %v", ok, err)
	}
}
