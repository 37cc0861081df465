package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/storage"
)

// memStore is an in-memory lock table with the same conditional-write
// semantics as the durable store.
type memStore struct {
	mu    sync.Mutex
	locks map[string]*models.EditLock
}

func newMemStore() *memStore {
	return &memStore{locks: make(map[string]*models.EditLock)}
}

func key(projectID, date string) string { return projectID + "/" + date }

func (s *memStore) GetLock(ctx context.Context, projectID, date string) (*models.EditLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key(projectID, date)]
	if !ok {
		return nil, nil
	}
	copied := *l
	return &copied, nil
}

func (s *memStore) PutLock(ctx context.Context, lock *models.EditLock, expectDeviceID string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(lock.ProjectID, lock.ReportDate)
	existing, ok := s.locks[k]
	if !force && ok && existing.DeviceID != expectDeviceID {
		return storage.ErrLockConflict
	}
	if !force && !ok && expectDeviceID != "" {
		return storage.ErrLockConflict
	}
	copied := *lock
	s.locks[k] = &copied
	return nil
}

func (s *memStore) DeleteLock(ctx context.Context, projectID, date, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(projectID, date)
	if l, ok := s.locks[k]; ok && l.DeviceID == deviceID {
		delete(s.locks, k)
	}
	return nil
}

func newTestManager(store Store, deviceID string) *Manager {
	return NewManager(store, deviceID, "Inspector "+deviceID, 90*time.Second, 20*time.Second)
}

func TestAcquireGrantsFreeLock(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store, "dev-a")

	res, err := m.Acquire(context.Background(), "p1", "2026-08-28")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !res.Granted {
		t.Fatalf("free lock must be granted")
	}
	if res.Holder.DeviceID != "dev-a" {
		t.Errorf("holder = %s, want dev-a", res.Holder.DeviceID)
	}
}

func TestAcquireDeniedWhileHeldElsewhere(t *testing.T) {
	store := newMemStore()
	a := newTestManager(store, "dev-a")
	b := newTestManager(store, "dev-b")

	if res, _ := a.Acquire(context.Background(), "p1", "2026-08-28"); !res.Granted {
		t.Fatal("setup: dev-a should hold the lock")
	}

	res, err := b.Acquire(context.Background(), "p1", "2026-08-28")
	if err != nil {
		t.Fatalf("acquire errored: %v", err)
	}
	if res.Granted {
		t.Fatal("live lock must not be granted to a second device")
	}
	if res.Holder == nil || res.Holder.DeviceID != "dev-a" {
		t.Errorf("denied result must name the holder")
	}

	// The same device re-acquires its own lock freely
	again, err := a.Acquire(context.Background(), "p1", "2026-08-28")
	if err != nil || !again.Granted {
		t.Errorf("holder re-acquire should succeed, granted=%v err=%v", again.Granted, err)
	}
}

func TestStaleLockIsReclaimable(t *testing.T) {
	store := newMemStore()
	a := newTestManager(store, "dev-a")
	b := newTestManager(store, "dev-b")

	if res, _ := a.Acquire(context.Background(), "p1", "2026-08-28"); !res.Granted {
		t.Fatal("setup failed")
	}

	// Age dev-a's heartbeat past the staleness threshold
	store.mu.Lock()
	store.locks["p1/2026-08-28"].LastHeartbeat = time.Now().UTC().Add(-5 * time.Minute)
	store.mu.Unlock()

	res, err := b.Acquire(context.Background(), "p1", "2026-08-28")
	if err != nil {
		t.Fatalf("acquire errored: %v", err)
	}
	if !res.Granted {
		t.Fatal("stale lock must be reclaimable without force")
	}
	if res.Holder.DeviceID != "dev-b" {
		t.Errorf("new holder = %s, want dev-b", res.Holder.DeviceID)
	}
}

func TestRacingClaimsGrantExactlyOne(t *testing.T) {
	store := newMemStore()
	a := newTestManager(store, "dev-a")
	b := newTestManager(store, "dev-b")

	// Both saw no lock; both claim with expect="". The conditional
	// write lets exactly one through.
	resA, errA := a.claim(context.Background(), "p1", "2026-08-28", "", false)
	resB, errB := b.claim(context.Background(), "p1", "2026-08-28", "", false)
	if errA != nil || errB != nil {
		t.Fatalf("claims errored: %v / %v", errA, errB)
	}

	if resA.Granted == resB.Granted {
		t.Fatalf("exactly one claim must win, got a=%v b=%v", resA.Granted, resB.Granted)
	}
	if !resB.Granted && (resB.Holder == nil || resB.Holder.DeviceID != "dev-a") {
		t.Errorf("loser must learn the winner's identity")
	}
}

func TestForceAcquireDisplacesAndRenewFails(t *testing.T) {
	store := newMemStore()
	a := newTestManager(store, "dev-a")
	b := newTestManager(store, "dev-b")

	if res, _ := a.Acquire(context.Background(), "p1", "2026-08-28"); !res.Granted {
		t.Fatal("setup failed")
	}

	res, err := b.ForceAcquire(context.Background(), "p1", "2026-08-28")
	if err != nil || !res.Granted {
		t.Fatalf("force acquire must win, granted=%v err=%v", res.Granted, err)
	}

	// Displaced device discovers the loss on its next renewal
	err = a.Renew(context.Background(), "p1", "2026-08-28")
	if !errors.Is(err, ErrLockLost) {
		t.Errorf("displaced renew = %v, want ErrLockLost", err)
	}

	// The new holder renews normally
	if err := b.Renew(context.Background(), "p1", "2026-08-28"); err != nil {
		t.Errorf("holder renew failed: %v", err)
	}
}

func TestSetHolderNamesSubsequentLocks(t *testing.T) {
	store := newMemStore()
	m := newTestManager(store, "dev-a")

	// After login, lock records carry the inspector's name so the
	// other device's takeover dialog can show who is editing.
	m.SetHolder("J. Alvarez")
	res, err := m.Acquire(context.Background(), "p1", "2026-08-28")
	if err != nil || !res.Granted {
		t.Fatalf("acquire failed, granted=%v err=%v", res.Granted, err)
	}
	if res.Holder.HolderName != "J. Alvarez" {
		t.Errorf("holder name = %q, want the inspector's name", res.Holder.HolderName)
	}

	if err := m.Renew(context.Background(), "p1", "2026-08-28"); err != nil {
		t.Fatalf("renew failed: %v", err)
	}
	l, _ := store.GetLock(context.Background(), "p1", "2026-08-28")
	if l.HolderName != "J. Alvarez" {
		t.Errorf("renewed holder name = %q, want the inspector's name", l.HolderName)
	}
}

func TestReleaseOnlyRemovesOwnLock(t *testing.T) {
	store := newMemStore()
	a := newTestManager(store, "dev-a")
	b := newTestManager(store, "dev-b")

	if res, _ := a.Acquire(context.Background(), "p1", "2026-08-28"); !res.Granted {
		t.Fatal("setup failed")
	}

	// Someone else's release is a no-op
	b.Release(context.Background(), "p1", "2026-08-28")
	if l, _ := store.GetLock(context.Background(), "p1", "2026-08-28"); l == nil {
		t.Fatal("foreign release must not drop the lock")
	}

	a.Release(context.Background(), "p1", "2026-08-28")
	if l, _ := store.GetLock(context.Background(), "p1", "2026-08-28"); l != nil {
		t.Errorf("own release must drop the lock")
	}
}
