package report

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldworks/sitereport/internal/models"
)

func TestRefineBlockedUntilGuardsPass(t *testing.T) {
	sess, _, _ := newTestSession()
	refiner := &fakeRefiner{sections: map[string]string{"weather": "Clear skies."}}
	checkpoint := &fakeCheckpointer{}

	// Safety question unanswered
	_, err := sess.Refine(context.Background(), refiner, &fakeFlusher{}, checkpoint)
	var guard *GuardError
	if !errors.As(err, &guard) || guard.Code != "safety_unanswered" {
		t.Fatalf("expected safety guard, got %v", err)
	}

	// Safety answered, but contractors unaccounted
	_ = sess.SetToggle(SafetyToggle, models.ToggleNo)
	_, err = sess.Refine(context.Background(), refiner, &fakeFlusher{}, checkpoint)
	if !errors.As(err, &guard) || guard.Code != "contractor_unaccounted" {
		t.Fatalf("expected contractor guard, got %v", err)
	}
	if refiner.calls != 0 {
		t.Errorf("guards must block before any AI round-trip")
	}

	// One contractor works, the other has none
	if _, err := sess.Append("work_c1", "pulled feeders in bay 2"); err != nil {
		t.Fatal(err)
	}
	_, err = sess.Refine(context.Background(), refiner, &fakeFlusher{}, checkpoint)
	if !errors.As(err, &guard) || guard.Code != "contractor_unaccounted" {
		t.Fatalf("second contractor still unaccounted, got %v", err)
	}

	// Marking the second no-work satisfies the guard
	_ = sess.MarkNoWork("c2")
	outcome, err := sess.Refine(context.Background(), refiner, &fakeFlusher{}, checkpoint)
	if err != nil {
		t.Fatalf("refine should pass now: %v", err)
	}
	if outcome.Queued {
		t.Errorf("checkpoint was direct, not queued")
	}
	if sess.Report().Status != models.ReportStatusRefined {
		t.Errorf("status = %s, want refined", sess.Report().Status)
	}
}

func TestRefineAIFailureLeavesDraft(t *testing.T) {
	sess, _, _ := newTestSession()
	readyForRefine(sess)

	refiner := &fakeRefiner{err: errFailed}
	_, err := sess.Refine(context.Background(), refiner, &fakeFlusher{}, &fakeCheckpointer{})
	if err == nil {
		t.Fatal("expected refine error")
	}
	if sess.Report().Status != models.ReportStatusDraft {
		t.Errorf("failed refinement must leave the report a draft, got %s", sess.Report().Status)
	}
	if len(sess.Report().RefinedSections) != 0 {
		t.Errorf("no partial refined sections on failure")
	}
}

func TestRefineCheckpointMayQueue(t *testing.T) {
	sess, _, _ := newTestSession()
	readyForRefine(sess)

	refiner := &fakeRefiner{sections: map[string]string{"weather": "Cold."}}
	outcome, err := sess.Refine(context.Background(), refiner, &fakeFlusher{}, &fakeCheckpointer{queued: true})
	if err != nil {
		t.Fatalf("queued checkpoint is still success: %v", err)
	}
	if !outcome.Queued {
		t.Errorf("expected queued outcome")
	}
	if sess.Report().Status != models.ReportStatusRefined {
		t.Errorf("refine with queued checkpoint still transitions, got %s", sess.Report().Status)
	}
}

func TestRefineRetriesPhotosWithoutBlocking(t *testing.T) {
	sess, _, _ := newTestSession()
	readyForRefine(sess)

	// Upload failure at the refine checkpoint is tolerated; the photos
	// get another chance at submit.
	flusher := &fakeFlusher{err: errFailed}
	refiner := &fakeRefiner{sections: map[string]string{"weather": "Overcast."}}
	if _, err := sess.Refine(context.Background(), refiner, flusher, &fakeCheckpointer{}); err != nil {
		t.Fatalf("photo failure must not block refine: %v", err)
	}
	if flusher.calls != 1 {
		t.Errorf("refine must attempt the photo flush, got %d calls", flusher.calls)
	}
	if sess.Report().Status != models.ReportStatusRefined {
		t.Errorf("status = %s, want refined", sess.Report().Status)
	}
}

func TestSubmitRequiresRefinedState(t *testing.T) {
	sess, _, _ := newTestSession()

	err := sess.Submit(context.Background(), &fakeFlusher{}, &fakeDocs{url: "u"}, &fakeCheckpointer{}, &fakePurger{})
	if !errors.Is(err, ErrNotRefined) {
		t.Fatalf("draft submit must fail with ErrNotRefined, got %v", err)
	}
}

func TestSubmitBlockedByPendingPhotos(t *testing.T) {
	sess, _, _ := newTestSession()
	readyForRefine(sess)
	if _, err := sess.Refine(context.Background(), &fakeRefiner{sections: map[string]string{"weather": "x"}}, &fakeFlusher{}, &fakeCheckpointer{}); err != nil {
		t.Fatal(err)
	}

	err := sess.Submit(context.Background(), &fakeFlusher{err: errFailed}, &fakeDocs{url: "u"}, &fakeCheckpointer{}, &fakePurger{})
	var guard *GuardError
	if !errors.As(err, &guard) || guard.Code != "photos_pending" {
		t.Fatalf("expected photos_pending guard, got %v", err)
	}
	if sess.Report().Status != models.ReportStatusRefined {
		t.Errorf("blocked submit must leave status refined")
	}
}

func TestSubmitRequiresDirectRemoteWrite(t *testing.T) {
	sess, _, _ := newTestSession()
	readyForRefine(sess)
	if _, err := sess.Refine(context.Background(), &fakeRefiner{sections: map[string]string{"weather": "x"}}, &fakeFlusher{}, &fakeCheckpointer{}); err != nil {
		t.Fatal(err)
	}

	// A queued write is not good enough for submit
	err := sess.Submit(context.Background(), &fakeFlusher{}, &fakeDocs{url: "u"}, &fakeCheckpointer{queued: true}, &fakePurger{})
	var guard *GuardError
	if !errors.As(err, &guard) || guard.Code != "remote_write_failed" {
		t.Fatalf("expected remote_write_failed guard, got %v", err)
	}
	if sess.Report().Status != models.ReportStatusRefined {
		t.Errorf("failed submit must revert to refined, got %s", sess.Report().Status)
	}
}

func TestSubmitSuccess(t *testing.T) {
	sess, _, notifier := newTestSession()
	readyForRefine(sess)
	if _, err := sess.Refine(context.Background(), &fakeRefiner{sections: map[string]string{"weather": "Clear."}}, &fakeFlusher{}, &fakeCheckpointer{}); err != nil {
		t.Fatal(err)
	}

	purger := &fakePurger{}
	err := sess.Submit(context.Background(), &fakeFlusher{}, &fakeDocs{url: "https://store/reports/r1.pdf"}, &fakeCheckpointer{}, purger)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	r := sess.Report()
	if r.Status != models.ReportStatusSubmitted {
		t.Errorf("status = %s, want submitted", r.Status)
	}
	if r.DocumentURL == "" {
		t.Errorf("document URL must be recorded")
	}
	if !purger.purged {
		t.Errorf("local temporaries must be purged after submit")
	}
	if !notifier.has("report_submitted") {
		t.Errorf("submit should emit an event")
	}

	// Terminal: everything rejected from here on
	if err := sess.SetToggle("late_toggle", models.ToggleYes); !errors.Is(err, ErrReportSubmitted) {
		t.Errorf("terminal report must reject toggles, got %v", err)
	}
	err = sess.Submit(context.Background(), &fakeFlusher{}, &fakeDocs{url: "u"}, &fakeCheckpointer{}, purger)
	if !errors.Is(err, ErrReportSubmitted) {
		t.Errorf("double submit must fail, got %v", err)
	}
}

func TestCancelDraftOnlyForDrafts(t *testing.T) {
	sess, _, _ := newTestSession()
	deleter := &fakeDeleter{}

	if err := sess.CancelDraft(context.Background(), deleter); err != nil {
		t.Fatalf("cancel draft failed: %v", err)
	}
	if !deleter.deleted {
		t.Errorf("cancel must delete the draft")
	}

	sess2, _, _ := newTestSession()
	readyForRefine(sess2)
	if _, err := sess2.Refine(context.Background(), &fakeRefiner{sections: map[string]string{"weather": "x"}}, &fakeFlusher{}, &fakeCheckpointer{}); err != nil {
		t.Fatal(err)
	}
	err := sess2.CancelDraft(context.Background(), &fakeDeleter{})
	var guard *GuardError
	if !errors.As(err, &guard) || guard.Code != "not_draft" {
		t.Errorf("refined report must not be cancellable, got %v", err)
	}
}
