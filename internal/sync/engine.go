package sync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
)

// RemoteWriter is the durable-store client the engine replays against.
type RemoteWriter interface {
	UpsertReport(ctx context.Context, report *models.Report) error
	Apply(ctx context.Context, item models.OutboxItem) error
}

// Engine owns the durable outbox and its replay loop. It doubles as
// the lifecycle checkpointer: a checkpoint is a direct remote write
// when reachable, a queued one otherwise.
type Engine struct {
	store  Store
	remote RemoteWriter
	online func() bool

	drainInterval time.Duration
	notify        func(event string, data map[string]string)
	onFailure     func()

	drainMu  sync.Mutex
	stopChan chan struct{}
	runMu    sync.Mutex
	running  bool
}

// NewEngine creates a sync engine over a persistent outbox
func NewEngine(store Store, remote RemoteWriter, online func() bool, drainInterval time.Duration) *Engine {
	return &Engine{
		store:         store,
		remote:        remote,
		online:        online,
		drainInterval: drainInterval,
	}
}

// SetNotifier wires state-change events toward the UI layer
func (e *Engine) SetNotifier(fn func(event string, data map[string]string)) {
	e.notify = fn
}

// SetFailureObserver wires failed remote writes into the connection
// monitor so a dead link flips the agent offline before the next probe.
func (e *Engine) SetFailureObserver(fn func()) {
	e.onFailure = fn
}

// Start launches the periodic drain loop. Reconnect-triggered drains
// come from the connection monitor calling DrainNow.
func (e *Engine) Start() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	go e.drainLoop(e.stopChan)
	log.Println("🔄 Sync engine started")
}

// Stop halts the drain loop
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopChan)
	log.Println("🛑 Sync engine stopped")
}

func (e *Engine) drainLoop(stop chan struct{}) {
	ticker := time.NewTicker(e.drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if e.online() {
				e.DrainNow()
			}
		case <-stop:
			return
		}
	}
}

// Checkpoint flushes the report aggregate to the durable store. It
// drains any backlog first so a direct write cannot jump ahead of
// older queued mutations for the same report. queued=true means the
// remote was unreachable and the write sits in the outbox.
func (e *Engine) Checkpoint(ctx context.Context, r *models.Report) (bool, error) {
	if e.online() {
		e.drain(ctx)
		if err := e.remote.UpsertReport(ctx, r); err == nil {
			return false, nil
		} else {
			log.Printf("⚠️ Direct checkpoint for report %s failed, queueing: %v", r.ID, err)
			if e.onFailure != nil {
				e.onFailure()
			}
		}
	}

	item, err := NewItem(r, models.OutboxOpUpsert)
	if err != nil {
		return false, err
	}
	if err := e.store.Enqueue(item); err != nil {
		return false, fmt.Errorf("checkpoint could not be queued: %w", err)
	}
	e.emit("sync_queued", map[string]string{"reportId": r.ID})
	return true, nil
}

// Queue records a mutation for later replay without trying the remote
func (e *Engine) Queue(entity models.SyncableEntity, operation string) error {
	item, err := NewItem(entity, operation)
	if err != nil {
		return err
	}
	return e.store.Enqueue(item)
}

// DrainNow replays the backlog immediately; called on reconnect
func (e *Engine) DrainNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	e.drain(ctx)
}

// drain replays pending items in enqueue order. A failure poisons its
// resource key for the rest of the pass: later items for the same key
// are skipped so per-resource ordering survives the retry.
func (e *Engine) drain(ctx context.Context) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	items, err := e.store.Pending()
	if err != nil {
		log.Printf("⚠️ Outbox load failed: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	log.Printf("📦 Draining outbox: %d item(s)", len(items))
	failedKeys := make(map[string]bool)
	sent := 0
	for _, item := range items {
		if failedKeys[item.Key()] {
			continue
		}
		if err := e.remote.Apply(ctx, item); err != nil {
			failedKeys[item.Key()] = true
			if merr := e.store.MarkFailed(item.ID, err); merr != nil {
				log.Printf("⚠️ Could not record outbox failure for item %d: %v", item.ID, merr)
			}
			log.Printf("⚠️ Outbox item %d (%s) failed: %v", item.ID, item.Key(), err)
			continue
		}
		if err := e.store.MarkDone(item.ID); err != nil {
			log.Printf("⚠️ Could not mark outbox item %d done: %v", item.ID, err)
		}
		sent++
	}

	if sent > 0 {
		log.Printf("✅ Outbox drain: %d sent, %d key(s) deferred", sent, len(failedKeys))
		e.emit("sync_drained", map[string]string{
			"sent":     fmt.Sprintf("%d", sent),
			"deferred": fmt.Sprintf("%d", len(failedKeys)),
		})
	}
}

// Backlog returns the pending queue depth for status endpoints
func (e *Engine) Backlog() int64 {
	n, err := e.store.PendingCount()
	if err != nil {
		log.Printf("⚠️ Outbox count failed: %v", err)
		return 0
	}
	return n
}

func (e *Engine) emit(event string, data map[string]string) {
	if e.notify != nil {
		e.notify(event, data)
	}
}
