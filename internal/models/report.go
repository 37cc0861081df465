package models

import (
	"time"
)

// ReportStatus defines the lifecycle state of a daily report
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"     // Being captured in the field
	ReportStatusRefined   ReportStatus = "refined"   // AI refinement completed, awaiting review
	ReportStatusSubmitted ReportStatus = "submitted" // Document generated and stored remotely, terminal
)

// CaptureMode defines how much structure the capture UI asks for
type CaptureMode string

const (
	CaptureModeGuided  CaptureMode = "guided"
	CaptureModeMinimal CaptureMode = "minimal"
)

// ToggleValue is the tri-state answer to a section-level question.
// Empty string means unanswered; once yes/no it is write-once.
type ToggleValue string

const (
	ToggleUnset ToggleValue = ""
	ToggleYes   ToggleValue = "yes"
	ToggleNo    ToggleValue = "no"
)

// Report is the aggregate root for one (project, calendar day) pair.
// At most one non-submitted report exists per pair; the DB enforces
// uniqueness on (project_id, report_date).
type Report struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	ProjectID  string       `gorm:"not null;uniqueIndex:idx_project_date" json:"projectId"`
	ReportDate string       `gorm:"type:varchar(10);not null;uniqueIndex:idx_project_date" json:"reportDate"` // YYYY-MM-DD
	Status     ReportStatus `gorm:"type:varchar(20);default:'draft'" json:"status"`
	Mode       CaptureMode  `gorm:"type:varchar(20);default:'guided'" json:"mode"`

	// ToggleStates maps section name -> ToggleValue ("yes"/"no").
	// Absent key means unanswered. Write-once per section.
	ToggleStates JSONB `gorm:"type:jsonb;default:'{}'" json:"toggleStates"`

	// RefinedSections holds the AI-generated prose per section,
	// SectionOverrides holds inspector edits on top of it.
	RefinedSections  JSONB `gorm:"type:jsonb;default:'{}'" json:"refinedSections"`
	SectionOverrides JSONB `gorm:"type:jsonb;default:'{}'" json:"sectionOverrides"`

	// DocumentURL is set once on submit and is the only field that may
	// change after the report becomes terminal.
	DocumentURL string `json:"documentUrl,omitempty"`

	Entries []Entry `gorm:"foreignKey:ReportID" json:"entries,omitempty"`
	Photos  []Photo `gorm:"foreignKey:ReportID" json:"photos,omitempty"`

	Contractors []ContractorActivity `gorm:"foreignKey:ReportID" json:"contractors,omitempty"`
	Personnel   []PersonnelCount     `gorm:"foreignKey:ReportID" json:"personnel,omitempty"`
	Equipment   []EquipmentRow       `gorm:"foreignKey:ReportID" json:"equipment,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Report) TableName() string {
	return "reports"
}

// GetEntityID implements SyncableEntity for the outbox
func (r Report) GetEntityID() string { return r.ID }

// GetEntityType implements SyncableEntity for the outbox
func (r Report) GetEntityType() string { return "report" }

// Toggle returns the current tri-state value for a section.
func (r Report) Toggle(section string) ToggleValue {
	if r.ToggleStates == nil {
		return ToggleUnset
	}
	v, ok := r.ToggleStates[section]
	if !ok {
		return ToggleUnset
	}
	s, _ := v.(string)
	return ToggleValue(s)
}

// IsTerminal reports whether the report can no longer be mutated.
func (r Report) IsTerminal() bool {
	return r.Status == ReportStatusSubmitted
}

// ContractorActivity is one contractor's row for the day in guided mode.
type ContractorActivity struct {
	ID           string `gorm:"primaryKey" json:"id"`
	ReportID     string `gorm:"not null;index" json:"reportId"`
	ContractorID string `gorm:"not null" json:"contractorId"`
	Name         string `json:"name"`
	// NoWork marks a contractor explicitly as "no work today"; either
	// this or at least one work entry is required to refine the report.
	NoWork    bool      `gorm:"default:false" json:"noWork"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (ContractorActivity) TableName() string {
	return "contractor_activities"
}

// PersonnelCount records headcount for a trade or crew.
type PersonnelCount struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ReportID  string    `gorm:"not null;index" json:"reportId"`
	Trade     string    `json:"trade"`
	Count     int       `gorm:"default:0" json:"count"`
	Hours     float64   `gorm:"default:0" json:"hours"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (PersonnelCount) TableName() string {
	return "personnel_counts"
}

// EquipmentRow records a piece of equipment on site and its usage.
type EquipmentRow struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ReportID  string    `gorm:"not null;index" json:"reportId"`
	Name      string    `json:"name"`
	HoursUsed float64   `gorm:"default:0" json:"hoursUsed"`
	Idle      bool      `gorm:"default:false" json:"idle"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (EquipmentRow) TableName() string {
	return "equipment_rows"
}
