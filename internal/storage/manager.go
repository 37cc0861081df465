package storage

import (
	"context"
	"errors"
	"log"

	"github.com/fieldworks/sitereport/internal/models"
	"gorm.io/gorm"
)

// ErrAbsent is returned when neither tier can produce the record.
// Callers must surface absence, never synthesize data.
var ErrAbsent = errors.New("storage: record absent in reachable tiers")

// Manager coordinates the three tiers. Reads are local-first with
// remote read-through when online; writes always land locally and reach
// the durable store only at explicit checkpoints (write-behind).
type Manager struct {
	Flags  *Flags
	Local  *Local
	Remote *Remote

	online func() bool
}

// NewManager wires the three tiers together
func NewManager(flags *Flags, local *Local, remote *Remote) *Manager {
	return &Manager{
		Flags:  flags,
		Local:  local,
		Remote: remote,
		online: func() bool { return false },
	}
}

// SetOnlineCheck installs the connectivity probe (owned by the sync engine)
func (m *Manager) SetOnlineCheck(fn func() bool) {
	if fn != nil {
		m.online = fn
	}
}

// Online reports current connectivity as last observed
func (m *Manager) Online() bool {
	return m.online()
}

// LoadReport reads the aggregate for (project, date): local tier first,
// then the durable store if reachable, populating the local tier as a
// side effect. Returns ErrAbsent when no tier has it.
func (m *Manager) LoadReport(ctx context.Context, projectID, date string) (*models.Report, error) {
	var report models.Report
	err := m.Local.
		Preload("Entries").
		Preload("Photos").
		Preload("Contractors").
		Preload("Personnel").
		Preload("Equipment").
		Where("project_id = ? AND report_date = ?", projectID, date).
		First(&report).Error

	if err == nil {
		return &report, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !m.online() {
		return nil, ErrAbsent
	}

	remote, err := m.Remote.FetchReport(ctx, projectID, date)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, err
	}

	// Populate the local tier so the next read works offline
	if err := m.SaveReportLocal(remote); err != nil {
		log.Printf("⚠️ Failed to cache remote report locally: %v", err)
	}
	return remote, nil
}

// SaveReportLocal persists the full aggregate to the local tier
// synchronously. A failure degrades durability but never blocks field
// capture; the degraded flag makes that state visible to the UI.
func (m *Manager) SaveReportLocal(report *models.Report) error {
	err := m.Local.Session(&gorm.Session{FullSaveAssociations: true}).Save(report).Error
	if err != nil {
		m.Flags.Set(FlagReducedDurable, "true")
		return err
	}
	m.Flags.Delete(FlagReducedDurable)
	return nil
}

// DeleteReport removes a cancelled draft from both tiers. The remote
// delete is skipped silently when offline; the draft was never a
// durable record unless checkpointed.
func (m *Manager) DeleteReport(ctx context.Context, report *models.Report) error {
	if err := m.Local.Where("report_id = ?", report.ID).Delete(&models.Entry{}).Error; err != nil {
		return err
	}
	if err := m.Local.Where("report_id = ?", report.ID).Delete(&models.Photo{}).Error; err != nil {
		return err
	}
	if err := m.Local.Delete(&models.Report{}, "id = ?", report.ID).Error; err != nil {
		return err
	}

	if m.online() {
		if err := m.Remote.DeleteReport(ctx, report.ID); err != nil {
			log.Printf("⚠️ Remote draft delete failed (will not retry, draft was local-only): %v", err)
		}
	}
	return nil
}

// PurgeSubmitted drops local temporaries once a report is terminal:
// photo payloads are cleared (remote copies are confirmed by the submit
// guard), metadata stays for display.
func (m *Manager) PurgeSubmitted(report *models.Report) error {
	return m.Local.Model(&models.Photo{}).
		Where("report_id = ?", report.ID).
		Update("payload", nil).Error
}

// SavePhoto upserts a photo row in the local tier
func (m *Manager) SavePhoto(p *models.Photo) error {
	return m.Local.Save(p).Error
}

// PhotosByStatus returns a report's photos in the given sync states
func (m *Manager) PhotosByStatus(reportID string, statuses ...models.PhotoSyncStatus) ([]models.Photo, error) {
	var photos []models.Photo
	err := m.Local.Where("report_id = ? AND status IN ?", reportID, statuses).
		Order("taken_at ASC").
		Find(&photos).Error
	return photos, err
}

// Photos returns every photo attached to a report
func (m *Manager) Photos(reportID string) ([]models.Photo, error) {
	var photos []models.Photo
	err := m.Local.Where("report_id = ?", reportID).Order("taken_at ASC").Find(&photos).Error
	return photos, err
}

// CacheProjects replaces the cached reference data used offline
func (m *Manager) CacheProjects(projects []models.Project, contractors []models.Contractor) error {
	for i := range projects {
		if err := m.Local.Save(&projects[i]).Error; err != nil {
			return err
		}
	}
	for i := range contractors {
		if err := m.Local.Save(&contractors[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Contractors returns the cached contractor list for a project
func (m *Manager) Contractors(projectID string) ([]models.Contractor, error) {
	var contractors []models.Contractor
	err := m.Local.Where("project_id = ?", projectID).Order("name").Find(&contractors).Error
	return contractors, err
}

// Projects returns the cached project list
func (m *Manager) Projects() ([]models.Project, error) {
	var projects []models.Project
	err := m.Local.Order("name").Find(&projects).Error
	return projects, err
}
