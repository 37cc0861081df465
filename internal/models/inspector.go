package models

import (
	"time"
)

// Inspector is the local account used to unlock the agent on this
// device. The PIN is bcrypt-hashed; a successful login yields a JWT
// session token for the localhost API.
type Inspector struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	PinHash  string `gorm:"not null" json:"-"`
	CanForce bool   `gorm:"default:false" json:"canForce"` // May force-take a live edit lock

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TableName specifies the table name
func (Inspector) TableName() string {
	return "inspectors"
}
