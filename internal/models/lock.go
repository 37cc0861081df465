package models

import (
	"time"
)

// EditLock is the cross-device mutual-exclusion record for one
// (project, report date) pair. It lives in the remote store; the
// uniqueness constraint on (project_id, report_date) guarantees at most
// one record per key. A lock is live while now - LastHeartbeat stays
// below the staleness threshold; an expired lock may be silently
// reclaimed by any device.
type EditLock struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ProjectID  string `gorm:"not null;uniqueIndex:idx_lock_key" json:"projectId"`
	ReportDate string `gorm:"type:varchar(10);not null;uniqueIndex:idx_lock_key" json:"reportDate"`

	DeviceID      string    `gorm:"not null" json:"deviceId"`
	HolderName    string    `json:"holderName"`
	AcquiredAt    time.Time `json:"acquiredAt"`
	LastHeartbeat time.Time `gorm:"index" json:"lastHeartbeat"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (EditLock) TableName() string {
	return "edit_locks"
}

// IsStale reports whether the lock's heartbeat is older than the
// staleness threshold at the given instant.
func (l EditLock) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(l.LastHeartbeat) >= threshold
}
