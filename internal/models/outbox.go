package models

import (
	"time"

	"gorm.io/datatypes"
)

// Outbox operation verbs. Replays use upsert semantics with stable,
// caller-assigned IDs so a retried item is a harmless no-op remotely.
const (
	OutboxOpUpsert = "upsert"
	OutboxOpDelete = "delete"
)

// Outbox item status values
const (
	OutboxStatusPending = "pending"
	OutboxStatusDone    = "done"
)

// OutboxItem is one queued mutation that could not reach the remote
// store. The autoincrement ID doubles as the enqueue order; replay
// processes items in ID order per resource key.
type OutboxItem struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ResourceType string         `gorm:"type:varchar(50);not null;index:idx_outbox_key" json:"resourceType"` // report, entry, photo
	ResourceID   string         `gorm:"type:varchar(255);not null;index:idx_outbox_key" json:"resourceId"`
	Operation    string         `gorm:"type:varchar(20);not null" json:"operation"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	EnqueuedAt   time.Time      `gorm:"not null" json:"enqueuedAt"`
	Attempts     int            `gorm:"default:0" json:"attempts"`
	LastError    *string        `gorm:"type:text" json:"lastError,omitempty"`
	Status       string         `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (OutboxItem) TableName() string {
	return "sync_outbox"
}

// Key returns the per-resource FIFO key used during replay.
func (i OutboxItem) Key() string {
	return i.ResourceType + ":" + i.ResourceID
}

// SyncableEntity is implemented by models the outbox can carry.
type SyncableEntity interface {
	GetEntityID() string
	GetEntityType() string
}
