package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fieldworks/sitereport/internal/lock"
	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/storage"
)

// ErrNoSession is returned when an operation needs an open edit session
var ErrNoSession = errors.New("no report is open for editing")

// ErrSessionBusy is returned when a different report is already open
var ErrSessionBusy = errors.New("another report is open, close it first")

// OpenRequest names the report to edit
type OpenRequest struct {
	ProjectID string
	Date      string
	Mode      models.CaptureMode
	Force     bool
}

// OpenResult is the outcome of an open attempt. When the lock is held
// elsewhere, Session is nil and HeldBy names the holder so the UI can
// offer a takeover.
type OpenResult struct {
	Session *Session
	HeldBy  *models.EditLock
}

// Service owns at most one edit session per agent process. Opening a
// report acquires the cross-device lock and starts its heartbeat;
// closing releases both. Handlers talk to the service, never to a raw
// session they did not open.
type Service struct {
	store    *storage.Manager
	locks    *lock.Manager
	notifier Notifier
	deps     Deps

	mu        sync.Mutex
	opening   bool
	active    *Session
	activeKey string
	stopBeat  func()
}

// NewService creates the edit-session service
func NewService(store *storage.Manager, locks *lock.Manager, notifier Notifier, debounce time.Duration) *Service {
	s := &Service{
		store:    store,
		locks:    locks,
		notifier: notifier,
	}
	s.deps = Deps{
		Persister: store,
		Pusher:    store.Remote,
		Notifier:  notifier,
		Online:    store.Online,
		Debounce:  debounce,
	}
	return s
}

// Open acquires the edit lock for (project, date) and loads or creates
// the draft. Reopening the already-open report returns the live
// session. Offline, the lock step is skipped: nobody reachable can
// contend, and the next checkpoint republishes our heartbeat.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	key := req.ProjectID + "/" + req.Date

	s.mu.Lock()
	if s.active != nil {
		if s.activeKey == key {
			sess := s.active
			s.mu.Unlock()
			return &OpenResult{Session: sess}, nil
		}
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	// Reserve the slot before the lock and load round-trips so two
	// concurrent opens cannot both install a session.
	if s.opening {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.opening = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.opening = false
		s.mu.Unlock()
	}()

	if s.store.Online() {
		if name, ok := s.store.Flags.Get(storage.FlagInspectorName); ok && name != "" {
			s.locks.SetHolder(name)
		}
		var res *lock.Result
		var err error
		if req.Force {
			res, err = s.locks.ForceAcquire(ctx, req.ProjectID, req.Date)
		} else {
			res, err = s.locks.Acquire(ctx, req.ProjectID, req.Date)
		}
		if err != nil {
			return nil, fmt.Errorf("lock acquisition failed: %w", err)
		}
		if !res.Granted {
			return &OpenResult{HeldBy: res.Holder}, nil
		}
	} else {
		log.Printf("⚠️ Opening %s offline, lock deferred until reconnect", key)
	}

	report, err := s.store.LoadReport(ctx, req.ProjectID, req.Date)
	if errors.Is(err, storage.ErrAbsent) {
		contractors, cerr := s.store.Contractors(req.ProjectID)
		if cerr != nil {
			return nil, fmt.Errorf("failed to load contractor roster: %w", cerr)
		}
		report = NewDraft(req.ProjectID, req.Date, req.Mode, contractors)
		if perr := s.store.SaveReportLocal(report); perr != nil {
			log.Printf("⚠️ Initial draft persist failed (continuing in memory): %v", perr)
		}
	} else if err != nil {
		return nil, err
	}

	sess := NewSession(report, s.deps)

	// Seed the cross-device toggle snapshot from the durable store
	if s.store.Online() {
		if remote, rerr := s.store.Remote.FetchReport(ctx, req.ProjectID, req.Date); rerr == nil && remote != nil {
			states := make(map[string]models.ToggleValue, len(remote.ToggleStates))
			for k := range remote.ToggleStates {
				states[k] = remote.Toggle(k)
			}
			sess.SeedRemoteToggles(states)
		}
	}

	s.mu.Lock()
	s.active = sess
	s.activeKey = key
	s.stopBeat = s.locks.StartHeartbeat(req.ProjectID, req.Date, func() {
		s.onLockLost(key)
	})
	s.mu.Unlock()

	log.Printf("📝 Edit session open for %s", key)
	return &OpenResult{Session: sess}, nil
}

// Active returns the open session, or ErrNoSession
func (s *Service) Active() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNoSession
	}
	return s.active, nil
}

// ActiveKey returns the open report's project/date key, empty when none
func (s *Service) ActiveKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeKey
}

// Close flushes the open session and releases the lock
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	sess := s.active
	key := s.activeKey
	stop := s.stopBeat
	s.active = nil
	s.activeKey = ""
	s.stopBeat = nil
	s.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	sess.Close()
	if stop != nil {
		stop()
	}

	projectID, date, ok := splitKey(key)
	if ok && s.store.Online() {
		s.locks.Release(ctx, projectID, date)
	}
	log.Printf("📕 Edit session closed for %s", key)
	return nil
}

// CancelDraft deletes the open draft and tears the session down
func (s *Service) CancelDraft(ctx context.Context) error {
	sess, err := s.Active()
	if err != nil {
		return err
	}
	if err := sess.CancelDraft(ctx, s.store); err != nil {
		return err
	}
	return s.Close(ctx)
}

// onLockLost tears down a session whose lock was force-taken elsewhere.
// The local copy stays on disk; unsynced work is recoverable but the
// surface goes read-only immediately.
func (s *Service) onLockLost(key string) {
	s.mu.Lock()
	if s.activeKey != key {
		s.mu.Unlock()
		return
	}
	sess := s.active
	s.active = nil
	s.activeKey = ""
	s.stopBeat = nil
	s.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	if s.notifier != nil {
		s.notifier.Notify("lock_lost", map[string]string{"report": key})
	}
}

func splitKey(key string) (projectID, date string, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
