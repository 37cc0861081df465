package report

import (
	"fmt"

	"github.com/fieldworks/sitereport/internal/models"
)

// SafetyToggle is the section key for the daily safety question. The
// refine guard requires it answered.
const SafetyToggle = "safety_no_incidents"

// SetToggle answers a section question. Write-once: any value other
// than unset locks the section for the lifetime of the report. The
// last known remote value is re-checked too, closing the window where
// two devices raced to answer the same toggle while offline.
func (s *Session) SetToggle(section string, value models.ToggleValue) error {
	if value != models.ToggleYes && value != models.ToggleNo {
		return fmt.Errorf("invalid toggle value %q", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}
	// Re-validated here, under the lock, immediately before commit
	if s.report.Toggle(section) != models.ToggleUnset {
		return ErrToggleLocked
	}
	if v, ok := s.remoteToggles[section]; ok && v != models.ToggleUnset {
		return ErrToggleLocked
	}

	if s.report.ToggleStates == nil {
		s.report.ToggleStates = make(models.JSONB)
	}
	s.report.ToggleStates[section] = string(value)

	s.schedulePersist()
	s.notify("toggle_set", map[string]string{
		"reportId": s.report.ID,
		"section":  section,
		"value":    string(value),
	})
	return nil
}

// GetToggle returns the current tri-state value for a section
func (s *Session) GetToggle(section string) models.ToggleValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report.Toggle(section)
}

// MarkNoWork flags a contractor as having no work today; the
// alternative to logging at least one work entry before refine.
func (s *Session) MarkNoWork(contractorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}

	for i := range s.report.Contractors {
		if s.report.Contractors[i].ContractorID == contractorID {
			s.report.Contractors[i].NoWork = true
			s.schedulePersist()
			return nil
		}
	}
	return fmt.Errorf("contractor %s not on this report", contractorID)
}
