package storage

import (
	"sync"
)

// Well-known flag keys. The flag store never holds report content.
const (
	FlagDeviceID        = "deviceId"
	FlagDeviceName      = "deviceName"
	FlagActiveProjectID = "activeProjectId"
	FlagActiveReportID  = "activeReportId"
	FlagInspectorName   = "inspectorName"
	FlagCanForceLock    = "perm.forceLock"
	FlagReducedDurable  = "durability.degraded" // Set when local-tier writes are failing
)

// Flags is the ephemeral tier: small key-value pairs (active identifiers,
// device id, permission flags) that do not need to survive a restart.
type Flags struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewFlags creates an empty flag store
func NewFlags() *Flags {
	return &Flags{values: make(map[string]string)}
}

// Get returns the value and whether the key was present
func (f *Flags) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores a value. Idempotent per key.
func (f *Flags) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
}

// Delete removes a key. Deleting an absent key is a no-op.
func (f *Flags) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

// IsSet reports whether a flag holds the literal "true"
func (f *Flags) IsSet(key string) bool {
	v, ok := f.Get(key)
	return ok && v == "true"
}
