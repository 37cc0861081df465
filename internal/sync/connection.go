package sync

import (
	"context"
	"log"
	"sync"
	"time"
)

// Monitor polls the remote health endpoint and tracks reachability.
// Transitions fire a callback so the engine can drain on reconnect
// and the UI can flip its online badge.
type Monitor struct {
	mu sync.RWMutex

	check    func(ctx context.Context) bool
	interval time.Duration
	onChange func(online bool)

	online      bool
	lastCheck   time.Time
	lastSuccess *time.Time

	running  bool
	stopChan chan struct{}
}

// NewMonitor creates a connection monitor. check is the health probe;
// onChange fires on every online/offline transition.
func NewMonitor(check func(ctx context.Context) bool, interval time.Duration, onChange func(online bool)) *Monitor {
	return &Monitor{
		check:    check,
		interval: interval,
		onChange: onChange,
	}
}

// Start begins health polling with an immediate first probe
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	go func() {
		m.probe()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probe()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts health polling
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopChan)
}

// IsOnline reports the last observed reachability
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// LastSuccess returns when the remote last answered a probe
func (m *Monitor) LastSuccess() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccess
}

// ReportFailure lets callers fold an observed request failure into the
// state immediately instead of waiting for the next probe.
func (m *Monitor) ReportFailure() {
	m.setOnline(false)
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ok := m.check(ctx)

	m.mu.Lock()
	m.lastCheck = time.Now()
	if ok {
		now := m.lastCheck
		m.lastSuccess = &now
	}
	m.mu.Unlock()

	m.setOnline(ok)
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		log.Println("✅ Remote store reachable")
	} else {
		log.Println("⚠️ Remote store unreachable, entering offline mode")
	}
	if m.onChange != nil {
		m.onChange(online)
	}
}
