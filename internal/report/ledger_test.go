package report

import (
	"errors"
	"testing"

	"github.com/fieldworks/sitereport/internal/models"
)

func TestAppendAssignsIncreasingSeqPerSection(t *testing.T) {
	sess, _, _ := newTestSession()

	e1, err := sess.Append("weather", "clear, 18C")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	e2, _ := sess.Append("weather", "wind picked up after lunch")
	e3, _ := sess.Append("notes", "crane delivery at 9am")

	if e1.Seq != 1 || e2.Seq != 2 {
		t.Errorf("expected weather seqs 1,2 got %d,%d", e1.Seq, e2.Seq)
	}
	if e3.Seq != 1 {
		t.Errorf("sections number independently, notes seq = %d", e3.Seq)
	}
}

func TestSoftDeleteKeepsRecordAndSeq(t *testing.T) {
	sess, _, _ := newTestSession()

	e1, _ := sess.Append("weather", "first")
	e2, _ := sess.Append("weather", "second")

	if err := sess.SoftDelete(e1.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	active := sess.ListActive("weather")
	if len(active) != 1 || active[0].ID != e2.ID {
		t.Fatalf("expected only the second entry active, got %d", len(active))
	}
	// Ledger length never decreases
	if len(sess.Report().Entries) != 2 {
		t.Errorf("deleted entry must stay in the ledger")
	}

	// Sequence numbers are never reused after a delete
	e3, _ := sess.Append("weather", "third")
	if e3.Seq != 3 {
		t.Errorf("expected seq 3 after delete, got %d", e3.Seq)
	}

	if err := sess.SoftDelete(e1.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
}

func TestEditChangesContentOnly(t *testing.T) {
	sess, _, _ := newTestSession()

	e, _ := sess.Append("weather", "typo hear")
	origTS := e.Timestamp
	origSeq := e.Seq

	edited, err := sess.Edit(e.ID, "typo here, fixed")
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if edited.Content != "typo here, fixed" {
		t.Errorf("content not updated")
	}
	if !edited.Timestamp.Equal(origTS) || edited.Seq != origSeq {
		t.Errorf("edit must not touch timestamp or seq")
	}

	if _, err := sess.Edit("missing", "x"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestTerminalReportRejectsLedgerMutations(t *testing.T) {
	sess, _, _ := newTestSession()
	e, _ := sess.Append("weather", "before submit")
	sess.Report().Status = models.ReportStatusSubmitted

	if _, err := sess.Append("weather", "late"); !errors.Is(err, ErrReportSubmitted) {
		t.Errorf("append on terminal report: got %v", err)
	}
	if _, err := sess.Edit(e.ID, "late"); !errors.Is(err, ErrReportSubmitted) {
		t.Errorf("edit on terminal report: got %v", err)
	}
	if err := sess.SoftDelete(e.ID); !errors.Is(err, ErrReportSubmitted) {
		t.Errorf("delete on terminal report: got %v", err)
	}
}

func TestBlurFlushesPersist(t *testing.T) {
	sess, persister, _ := newTestSession()

	if _, err := sess.Append("weather", "entry"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	sess.Blur()

	if persister.saveCount() == 0 {
		t.Errorf("blur must flush the debounced persist synchronously")
	}
}
