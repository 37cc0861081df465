package models

import (
	"time"
)

// Entry is a single timestamped field note in one report section.
// The ledger is append-only: edits replace Content only, deletion sets
// the Deleted flag and never removes the row.
type Entry struct {
	ID       string `gorm:"primaryKey" json:"id"`
	ReportID string `gorm:"not null;index" json:"reportId"`
	// Section is the logical bucket, e.g. "issues", "safety",
	// "work_<contractorId>".
	Section string `gorm:"type:varchar(100);not null;index" json:"section"`
	Content string `gorm:"type:text" json:"content"`
	// Timestamp is the creation time and is never touched by edits.
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	// Seq is the per-section monotonic sequence assigned at creation.
	// Values may have gaps after deletions; consumers sort by Seq and
	// must not assume contiguity. ("order" is reserved in SQL.)
	Seq     int  `gorm:"column:seq;not null" json:"order"`
	Deleted bool `gorm:"default:false;index" json:"deleted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Entry) TableName() string {
	return "report_entries"
}

// GetEntityID implements SyncableEntity for the outbox
func (e Entry) GetEntityID() string { return e.ID }

// GetEntityType implements SyncableEntity for the outbox
func (e Entry) GetEntityType() string { return "entry" }
