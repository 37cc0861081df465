package report

import (
	"context"
	"sync"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
)

// memPersister records local saves in memory
type memPersister struct {
	mu    sync.Mutex
	saves int
	fail  bool
	last  *models.Report
}

func (p *memPersister) SaveReportLocal(r *models.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errFailed
	}
	p.saves++
	p.last = r
	return nil
}

func (p *memPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func (p *memPersister) lastReport() *models.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// memNotifier captures emitted events
type memNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *memNotifier) Notify(event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *memNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

// fakeRefiner returns canned sections or an error
type fakeRefiner struct {
	sections map[string]string
	err      error
	calls    int
}

func (f *fakeRefiner) Refine(ctx context.Context, in RefineInput) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sections, nil
}

// fakeCheckpointer simulates the sync engine
type fakeCheckpointer struct {
	queued bool
	err    error
	calls  int
	last   *models.Report
}

func (f *fakeCheckpointer) Checkpoint(ctx context.Context, r *models.Report) (bool, error) {
	f.calls++
	f.last = r
	return f.queued, f.err
}

// fakeFlusher simulates the photo pipeline
type fakeFlusher struct {
	err   error
	calls int
}

func (f *fakeFlusher) FlushPending(ctx context.Context, reportID string) error {
	f.calls++
	return f.err
}

// fakeDocs simulates the document builder
type fakeDocs struct {
	url string
	err error
}

func (f *fakeDocs) Build(ctx context.Context, r *models.Report, sections map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// fakePurger records purges
type fakePurger struct {
	purged bool
}

func (f *fakePurger) PurgeSubmitted(r *models.Report) error {
	f.purged = true
	return nil
}

// fakeDeleter records deletes
type fakeDeleter struct {
	deleted bool
}

func (f *fakeDeleter) DeleteReport(ctx context.Context, r *models.Report) error {
	f.deleted = true
	return nil
}

var errFailed = errTest("injected failure")

type errTest string

func (e errTest) Error() string { return string(e) }

func testContractors() []models.Contractor {
	return []models.Contractor{
		{ID: "c1", ProjectID: "p1", Name: "Apex Electrical", Trade: "electrical"},
		{ID: "c2", ProjectID: "p1", Name: "Granite Civil", Trade: "civil"},
	}
}

// newTestSession builds a session over a fresh draft with a tiny
// debounce window so tests stay fast.
func newTestSession() (*Session, *memPersister, *memNotifier) {
	persister := &memPersister{}
	notifier := &memNotifier{}
	draft := NewDraft("p1", "2026-08-28", models.CaptureModeGuided, testContractors())
	sess := NewSession(draft, Deps{
		Persister: persister,
		Notifier:  notifier,
		Debounce:  5 * time.Millisecond,
	})
	return sess, persister, notifier
}

// readyForRefine answers the safety toggle and logs work for every
// contractor so the refine guards pass.
func readyForRefine(s *Session) {
	_ = s.SetToggle(SafetyToggle, models.ToggleYes)
	for _, c := range s.Report().Contractors {
		_, _ = s.Append("work_"+c.ContractorID, "crew on site, pulled cable")
	}
}
