package lock

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/storage"
)

// ErrLockLost means our lock record was taken over or expired while we
// held the edit session. The displaced device discovers a force takeover
// exactly here, on its next heartbeat.
var ErrLockLost = errors.New("edit lock lost")

// Store is the durable lock table. PutLock must be conditional: the
// write succeeds only when no record exists, the existing record
// belongs to expectDeviceID, or force is set.
type Store interface {
	GetLock(ctx context.Context, projectID, date string) (*models.EditLock, error)
	PutLock(ctx context.Context, lock *models.EditLock, expectDeviceID string, force bool) error
	DeleteLock(ctx context.Context, projectID, date, deviceID string) error
}

// Result is the acquisition outcome. When not granted, Holder names the
// device the inspector may choose to displace via ForceAcquire.
type Result struct {
	Granted bool
	Holder  *models.EditLock
}

// Manager runs the heartbeat-based mutual-exclusion protocol for this
// device.
type Manager struct {
	store      Store
	deviceID   string
	holderName string
	staleness  time.Duration
	heartbeat  time.Duration

	mu       sync.Mutex
	stopBeat chan struct{}
}

// SetHolder changes the display name written into lock records, e.g.
// after login when the inspector's name becomes known.
func (m *Manager) SetHolder(name string) {
	m.mu.Lock()
	m.holderName = name
	m.mu.Unlock()
}

func (m *Manager) holder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holderName
}

// NewManager creates a lock manager for this device
func NewManager(store Store, deviceID, holderName string, staleness, heartbeat time.Duration) *Manager {
	return &Manager{
		store:      store,
		deviceID:   deviceID,
		holderName: holderName,
		staleness:  staleness,
		heartbeat:  heartbeat,
	}
}

// Acquire attempts to take the edit lock for (project, date). A live
// lock held elsewhere yields heldBy; an absent or stale record is
// claimed with a conditional write so two racing devices get exactly
// one grant between them.
func (m *Manager) Acquire(ctx context.Context, projectID, date string) (*Result, error) {
	existing, err := m.store.GetLock(ctx, projectID, date)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil && existing.DeviceID != m.deviceID && !existing.IsStale(now, m.staleness) {
		return &Result{Granted: false, Holder: existing}, nil
	}

	expect := ""
	if existing != nil {
		expect = existing.DeviceID
	}
	return m.claim(ctx, projectID, date, expect, false)
}

// ForceAcquire overwrites a live lock after explicit user confirmation.
// Availability over correctness: losing at most the displaced editor's
// unsynced keystrokes beats blocking an inspector in the field.
func (m *Manager) ForceAcquire(ctx context.Context, projectID, date string) (*Result, error) {
	return m.claim(ctx, projectID, date, "", true)
}

func (m *Manager) claim(ctx context.Context, projectID, date, expect string, force bool) (*Result, error) {
	now := time.Now().UTC()
	lock := &models.EditLock{
		ProjectID:     projectID,
		ReportDate:    date,
		DeviceID:      m.deviceID,
		HolderName:    m.holder(),
		AcquiredAt:    now,
		LastHeartbeat: now,
	}

	err := m.store.PutLock(ctx, lock, expect, force)
	if errors.Is(err, storage.ErrLockConflict) {
		holder, gerr := m.store.GetLock(ctx, projectID, date)
		if gerr != nil {
			return nil, gerr
		}
		return &Result{Granted: false, Holder: holder}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Result{Granted: true, Holder: lock}, nil
}

// Renew refreshes our heartbeat. ErrLockLost means another device owns
// the record now.
func (m *Manager) Renew(ctx context.Context, projectID, date string) error {
	current, err := m.store.GetLock(ctx, projectID, date)
	if err != nil {
		return err
	}
	if current == nil || current.DeviceID != m.deviceID {
		return ErrLockLost
	}

	current.LastHeartbeat = time.Now().UTC()
	current.HolderName = m.holder()
	err = m.store.PutLock(ctx, current, m.deviceID, false)
	if errors.Is(err, storage.ErrLockConflict) {
		return ErrLockLost
	}
	return err
}

// StartHeartbeat renews the lock on a fixed interval while the edit
// surface is open. Transient (offline) errors are tolerated: nobody can
// observe our staleness without also being the new holder, and the next
// successful renewal tells us either way. onLost fires once if the lock
// is gone. Returns a stop function.
func (m *Manager) StartHeartbeat(projectID, date string, onLost func()) func() {
	m.mu.Lock()
	if m.stopBeat != nil {
		close(m.stopBeat)
	}
	stop := make(chan struct{})
	m.stopBeat = stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				err := m.Renew(ctx, projectID, date)
				cancel()
				if errors.Is(err, ErrLockLost) {
					log.Printf("⚠️ Edit lock for %s/%s lost to another device", projectID, date)
					if onLost != nil {
						onLost()
					}
					return
				}
				if err != nil {
					log.Printf("Heartbeat renew failed (offline?): %v", err)
				}
			case <-stop:
				return
			}
		}
	}()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.stopBeat == stop {
			close(stop)
			m.stopBeat = nil
		}
	}
}

// Release drops our lock. Best effort: offline release is skipped
// gracefully and the record simply expires via staleness.
func (m *Manager) Release(ctx context.Context, projectID, date string) {
	if err := m.store.DeleteLock(ctx, projectID, date, m.deviceID); err != nil {
		log.Printf("Lock release skipped (will expire): %v", err)
	}
}
