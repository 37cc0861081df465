package models

import (
	"time"
)

// Project is cached reference data fetched from the project-management
// backend; read-only on the device.
type Project struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	FetchedAt time.Time `json:"fetchedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Project) TableName() string {
	return "projects"
}

// Contractor is cached reference data; the set of contractors for a
// project drives the refine guard (work logged or marked no-work).
type Contractor struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"not null;index" json:"projectId"`
	Name      string    `gorm:"not null" json:"name"`
	Trade     string    `json:"trade"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Contractor) TableName() string {
	return "contractors"
}
