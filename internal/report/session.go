package report

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
)

// Persister writes the aggregate to the local tier synchronously.
type Persister interface {
	SaveReportLocal(report *models.Report) error
}

// EntryPusher is the best-effort, near-real-time backup of a single
// changed entry to the durable store, independent of checkpoints.
type EntryPusher interface {
	UpsertEntry(ctx context.Context, entry *models.Entry) error
}

// Notifier delivers state-changed events to the UI shell. The core
// never reaches into UI internals; it only emits.
type Notifier interface {
	Notify(event string, payload interface{})
}

// Deps carries the session's collaborators. Pusher and Notifier are
// optional; Online defaults to "always offline".
type Deps struct {
	Persister Persister
	Pusher    EntryPusher
	Notifier  Notifier
	Online    func() bool
	Debounce  time.Duration
}

// Session owns the in-memory report aggregate for one device edit
// session. All mutations go through its methods so the invariants stay
// centrally enforced; the mutex is the in-device serialization point
// and every guard is re-checked under it immediately before commit.
type Session struct {
	mu     sync.Mutex
	report *models.Report
	deps   Deps

	debounce *Debouncer

	// remoteToggles is the last known remote toggle state, used to
	// re-validate write-once semantics across devices that raced while
	// offline.
	remoteToggles map[string]models.ToggleValue
}

// NewSession wraps a loaded (or freshly created) report aggregate
func NewSession(r *models.Report, deps Deps) *Session {
	if deps.Online == nil {
		deps.Online = func() bool { return false }
	}
	if deps.Debounce <= 0 {
		deps.Debounce = 500 * time.Millisecond
	}
	s := &Session{
		report:        r,
		deps:          deps,
		remoteToggles: make(map[string]models.ToggleValue),
	}
	s.debounce = NewDebouncer(deps.Debounce, s.persistNow)
	return s
}

// SeedRemoteToggles records the durable store's answered toggles as of
// session open; SetToggle re-validates against them.
func (s *Session) SeedRemoteToggles(states map[string]models.ToggleValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range states {
		if v != models.ToggleUnset {
			s.remoteToggles[k] = v
		}
	}
}

// Report returns the aggregate. It is owned by this session and must
// not be mutated directly; cross-device sharing goes through the lock
// and the sync queue only.
func (s *Session) Report() *models.Report {
	return s.report
}

// Blur forces the pending debounced persist to run now. The UI calls
// this when focus leaves an input.
func (s *Session) Blur() {
	s.debounce.Flush()
}

// Close flushes pending work and stops the debouncer
func (s *Session) Close() {
	s.debounce.Flush()
	s.debounce.Stop()
}

// schedulePersist queues a debounced local write
func (s *Session) schedulePersist() {
	s.debounce.Trigger()
}

// snapshotLocked deep-copies the aggregate. The persister and the
// checkpointer walk entries and JSONB maps outside the session mutex,
// so they get a detached copy, never the live object.
func (s *Session) snapshotLocked() *models.Report {
	r := *s.report
	r.Entries = append([]models.Entry(nil), s.report.Entries...)
	r.Photos = append([]models.Photo(nil), s.report.Photos...)
	r.Contractors = append([]models.ContractorActivity(nil), s.report.Contractors...)
	r.Personnel = append([]models.PersonnelCount(nil), s.report.Personnel...)
	r.Equipment = append([]models.EquipmentRow(nil), s.report.Equipment...)
	r.ToggleStates = copyJSONB(s.report.ToggleStates)
	r.RefinedSections = copyJSONB(s.report.RefinedSections)
	r.SectionOverrides = copyJSONB(s.report.SectionOverrides)
	return &r
}

func copyJSONB(m models.JSONB) models.JSONB {
	if m == nil {
		return nil
	}
	out := make(models.JSONB, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// persistNow writes a snapshot of the aggregate to the local tier. A
// failure is logged and surfaced as degraded durability, never a
// crash; capture continues in memory.
func (s *Session) persistNow() {
	s.mu.Lock()
	report := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.deps.Persister.SaveReportLocal(report); err != nil {
		log.Printf("⚠️ Local persist failed (continuing in memory): %v", err)
		s.notify("durability_degraded", map[string]string{"reportId": report.ID})
		return
	}
	s.notify("report_changed", map[string]string{"reportId": report.ID})
}

// pushEntry asynchronously backs up one entry to the durable store.
// Best effort only: failure is logged, the checkpoint flush covers it.
func (s *Session) pushEntry(entry models.Entry) {
	if s.deps.Pusher == nil || !s.deps.Online() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.deps.Pusher.UpsertEntry(ctx, &entry); err != nil {
			log.Printf("Entry backup push failed for %s: %v", entry.ID, err)
		}
	}()
}

func (s *Session) notify(event string, payload interface{}) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(event, payload)
	}
}
