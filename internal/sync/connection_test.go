package sync

import (
	"context"
	"testing"
	"time"
)

func TestReportFailureFlipsOfflineImmediately(t *testing.T) {
	var transitions []bool
	m := NewMonitor(func(ctx context.Context) bool { return true }, time.Minute, func(online bool) {
		transitions = append(transitions, online)
	})

	// A failure while already offline changes nothing
	m.ReportFailure()
	if m.IsOnline() {
		t.Fatal("monitor starts offline")
	}
	if len(transitions) != 0 {
		t.Fatalf("no transition expected, got %v", transitions)
	}

	m.probe()
	if !m.IsOnline() {
		t.Fatal("healthy probe must flip online")
	}

	// A failed request flips us offline without waiting for the probe
	m.ReportFailure()
	if m.IsOnline() {
		t.Error("reported failure must flip offline")
	}
	if len(transitions) != 2 || transitions[0] != true || transitions[1] != false {
		t.Errorf("transitions = %v, want [true false]", transitions)
	}
}
