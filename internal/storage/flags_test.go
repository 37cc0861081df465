package storage

import (
	"sync"
	"testing"
)

func TestFlagsRoundTrip(t *testing.T) {
	f := NewFlags()

	if _, ok := f.Get(FlagDeviceID); ok {
		t.Errorf("fresh store must be empty")
	}

	f.Set(FlagDeviceID, "dev-1")
	if v, ok := f.Get(FlagDeviceID); !ok || v != "dev-1" {
		t.Errorf("got %q/%v, want dev-1", v, ok)
	}

	// Set is idempotent per key
	f.Set(FlagDeviceID, "dev-1")
	f.Set(FlagDeviceID, "dev-2")
	if v, _ := f.Get(FlagDeviceID); v != "dev-2" {
		t.Errorf("last write wins, got %q", v)
	}

	f.Delete(FlagDeviceID)
	if _, ok := f.Get(FlagDeviceID); ok {
		t.Errorf("deleted key must be absent")
	}
	// Deleting an absent key is a no-op
	f.Delete(FlagDeviceID)
}

func TestFlagsIsSet(t *testing.T) {
	f := NewFlags()

	if f.IsSet(FlagReducedDurable) {
		t.Errorf("absent flag is not set")
	}
	f.Set(FlagReducedDurable, "false")
	if f.IsSet(FlagReducedDurable) {
		t.Errorf("only the literal \"true\" counts as set")
	}
	f.Set(FlagReducedDurable, "true")
	if !f.IsSet(FlagReducedDurable) {
		t.Errorf("flag should be set")
	}
}

func TestFlagsConcurrentAccess(t *testing.T) {
	f := NewFlags()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Set(FlagActiveReportID, "r1")
				f.Get(FlagActiveReportID)
				f.IsSet(FlagCanForceLock)
			}
		}()
	}
	wg.Wait()
}
