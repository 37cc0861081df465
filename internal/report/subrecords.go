package report

import (
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/google/uuid"
)

// OverrideSection records an inspector edit on top of the AI-refined
// prose. Overrides sit at the top of the resolution order.
func (s *Session) OverrideSection(section, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}
	if s.report.SectionOverrides == nil {
		s.report.SectionOverrides = make(models.JSONB)
	}
	s.report.SectionOverrides[section] = text
	s.schedulePersist()
	return nil
}

// SetPersonnel upserts the headcount row for a trade
func (s *Session) SetPersonnel(trade string, count int, hours float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}

	for i := range s.report.Personnel {
		if s.report.Personnel[i].Trade == trade {
			s.report.Personnel[i].Count = count
			s.report.Personnel[i].Hours = hours
			s.schedulePersist()
			return nil
		}
	}
	s.report.Personnel = append(s.report.Personnel, models.PersonnelCount{
		ID:       uuid.New().String(),
		ReportID: s.report.ID,
		Trade:    trade,
		Count:    count,
		Hours:    hours,
	})
	s.schedulePersist()
	return nil
}

// SetEquipment upserts an equipment usage row by name
func (s *Session) SetEquipment(name string, hoursUsed float64, idle bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}

	for i := range s.report.Equipment {
		if s.report.Equipment[i].Name == name {
			s.report.Equipment[i].HoursUsed = hoursUsed
			s.report.Equipment[i].Idle = idle
			s.schedulePersist()
			return nil
		}
	}
	s.report.Equipment = append(s.report.Equipment, models.EquipmentRow{
		ID:        uuid.New().String(),
		ReportID:  s.report.ID,
		Name:      name,
		HoursUsed: hoursUsed,
		Idle:      idle,
	})
	s.schedulePersist()
	return nil
}

// NewDraft creates the aggregate for a (project, date) pair on first
// interaction, seeding one activity row per configured contractor.
func NewDraft(projectID, date string, mode models.CaptureMode, contractors []models.Contractor) *models.Report {
	r := &models.Report{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		ReportDate:       date,
		Status:           models.ReportStatusDraft,
		Mode:             mode,
		ToggleStates:     make(models.JSONB),
		RefinedSections:  make(models.JSONB),
		SectionOverrides: make(models.JSONB),
		CreatedAt:        time.Now().UTC(),
	}
	for _, c := range contractors {
		r.Contractors = append(r.Contractors, models.ContractorActivity{
			ID:           uuid.New().String(),
			ReportID:     r.ID,
			ContractorID: c.ID,
			Name:         c.Name,
		})
	}
	return r
}
