package report

import (
	"errors"
	"testing"

	"github.com/fieldworks/sitereport/internal/models"
)

func TestToggleWriteOnce(t *testing.T) {
	sess, _, notifier := newTestSession()

	if err := sess.SetToggle(SafetyToggle, models.ToggleYes); err != nil {
		t.Fatalf("first answer failed: %v", err)
	}
	if got := sess.GetToggle(SafetyToggle); got != models.ToggleYes {
		t.Errorf("expected yes, got %q", got)
	}
	if !notifier.has("toggle_set") {
		t.Errorf("toggle answer should emit an event")
	}

	// Same value, different value: both rejected once set
	if err := sess.SetToggle(SafetyToggle, models.ToggleYes); !errors.Is(err, ErrToggleLocked) {
		t.Errorf("re-answer with same value: got %v", err)
	}
	if err := sess.SetToggle(SafetyToggle, models.ToggleNo); !errors.Is(err, ErrToggleLocked) {
		t.Errorf("re-answer with different value: got %v", err)
	}
	if got := sess.GetToggle(SafetyToggle); got != models.ToggleYes {
		t.Errorf("rejected write must not change the value, got %q", got)
	}
}

func TestToggleRejectsInvalidValue(t *testing.T) {
	sess, _, _ := newTestSession()

	if err := sess.SetToggle(SafetyToggle, models.ToggleUnset); err == nil {
		t.Errorf("unset is not a settable value")
	}
	if err := sess.SetToggle(SafetyToggle, models.ToggleValue("maybe")); err == nil {
		t.Errorf("arbitrary values must be rejected")
	}
	if got := sess.GetToggle(SafetyToggle); got != models.ToggleUnset {
		t.Errorf("failed writes must leave the toggle unset, got %q", got)
	}
}

func TestToggleRevalidatesAgainstRemoteSnapshot(t *testing.T) {
	sess, _, _ := newTestSession()

	// Another device answered while we were offline
	sess.SeedRemoteToggles(map[string]models.ToggleValue{
		"permits_checked": models.ToggleNo,
	})

	if err := sess.SetToggle("permits_checked", models.ToggleYes); !errors.Is(err, ErrToggleLocked) {
		t.Errorf("remote-answered toggle must be locked here too, got %v", err)
	}
	if err := sess.SetToggle(SafetyToggle, models.ToggleYes); err != nil {
		t.Errorf("unrelated toggle must stay writable: %v", err)
	}
}

func TestMarkNoWork(t *testing.T) {
	sess, _, _ := newTestSession()

	if err := sess.MarkNoWork("c1"); err != nil {
		t.Fatalf("mark no work failed: %v", err)
	}

	var found bool
	for _, c := range sess.Report().Contractors {
		if c.ContractorID == "c1" && c.NoWork {
			found = true
		}
	}
	if !found {
		t.Errorf("contractor c1 should be flagged no-work")
	}

	if err := sess.MarkNoWork("nobody"); err == nil {
		t.Errorf("unknown contractor must be rejected")
	}
}
