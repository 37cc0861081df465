package models

import (
	"time"

	"gorm.io/datatypes"
)

// PhotoSyncStatus tracks where a photo's bytes currently live
type PhotoSyncStatus string

const (
	PhotoSyncPending PhotoSyncStatus = "pending" // Local only, upload not yet attempted or queued
	PhotoSyncSynced  PhotoSyncStatus = "synced"  // Uploaded, RemotePath is valid
	PhotoSyncFailed  PhotoSyncStatus = "failed"  // Last upload attempt failed, will retry at checkpoint
)

// Photo is a locally captured image attached to a report. The compressed
// payload lives in the local tier so the photo is usable offline; the
// remote path is filled in once the upload succeeds.
type Photo struct {
	ID       string `gorm:"primaryKey" json:"id"`
	ReportID string `gorm:"not null;index" json:"reportId"`

	// Payload is the compressed JPEG. Cleared after the report is
	// submitted and the remote copy is confirmed.
	Payload    []byte `gorm:"type:bytea" json:"-"`
	RemotePath string `json:"remotePath,omitempty"`

	Caption string `json:"caption"`
	// GPS holds {"lat": ..., "lon": ..., "accuracy": ...} when the
	// capture layer provided a fix.
	GPS     datatypes.JSON  `gorm:"type:jsonb" json:"gps,omitempty"`
	TakenAt time.Time       `json:"takenAt"`
	Status  PhotoSyncStatus `gorm:"type:varchar(20);default:'pending';index" json:"syncStatus"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Photo) TableName() string {
	return "photos"
}

// GetEntityID implements SyncableEntity for the outbox
func (p Photo) GetEntityID() string { return p.ID }

// GetEntityType implements SyncableEntity for the outbox
func (p Photo) GetEntityType() string { return "photo" }
