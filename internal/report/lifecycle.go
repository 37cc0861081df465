package report

import (
	"context"
	"fmt"
	"log"

	"github.com/fieldworks/sitereport/internal/models"
)

// Refiner is the AI collaborator turning raw entries into section prose.
type Refiner interface {
	Refine(ctx context.Context, in RefineInput) (map[string]string, error)
}

// RefineInput is everything the refinement call sees
type RefineInput struct {
	ProjectID   string
	ReportDate  string
	Entries     []models.Entry
	Toggles     map[string]models.ToggleValue
	Contractors []models.ContractorActivity
}

// DocumentBuilder generates and uploads the static document, returning
// its durable URL.
type DocumentBuilder interface {
	Build(ctx context.Context, r *models.Report, sections map[string]string) (string, error)
}

// PhotoFlusher retries every pending/failed photo for a report. Both
// checkpoints invoke it; only the submit guard blocks on an error.
type PhotoFlusher interface {
	FlushPending(ctx context.Context, reportID string) error
}

// Checkpointer flushes the report to the durable store. queued=true
// means the write could not reach the remote and sits in the outbox.
type Checkpointer interface {
	Checkpoint(ctx context.Context, r *models.Report) (queued bool, err error)
}

// Deleter removes a cancelled draft from both tiers.
type Deleter interface {
	DeleteReport(ctx context.Context, r *models.Report) error
}

// Purger drops local temporaries after a successful submit.
type Purger interface {
	PurgeSubmitted(r *models.Report) error
}

// CheckpointOutcome reports how a refine checkpoint landed
type CheckpointOutcome struct {
	Queued bool
}

// Refine runs the draft -> refined transition: guards, AI round-trip,
// local persist, remote checkpoint. Guard failures carry an actionable
// message; an AI failure leaves the report a plain draft.
func (s *Session) Refine(ctx context.Context, refiner Refiner, photos PhotoFlusher, checkpoint Checkpointer) (*CheckpointOutcome, error) {
	s.mu.Lock()

	if s.report.IsTerminal() {
		s.mu.Unlock()
		return nil, ErrReportSubmitted
	}
	if s.report.Status == models.ReportStatusRefined {
		s.mu.Unlock()
		return nil, &GuardError{Code: "already_refined", Message: "report is already refined"}
	}

	if err := s.refineGuardsLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	in := RefineInput{
		ProjectID:   s.report.ProjectID,
		ReportDate:  s.report.ReportDate,
		Entries:     activeEntries(s.report),
		Toggles:     toggleMap(s.report),
		Contractors: append([]models.ContractorActivity(nil), s.report.Contractors...),
	}
	s.mu.Unlock()

	// The AI round-trip suspends; guards are re-checked after it.
	sections, err := refiner.Refine(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("refinement failed, keep editing as draft or retry: %w", err)
	}

	s.mu.Lock()
	if s.report.IsTerminal() {
		s.mu.Unlock()
		return nil, ErrReportSubmitted
	}
	if err := s.refineGuardsLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	refined := make(models.JSONB, len(sections))
	for k, v := range sections {
		refined[k] = v
	}
	s.report.RefinedSections = refined
	s.report.Status = models.ReportStatusRefined
	report := s.snapshotLocked()
	s.mu.Unlock()

	// Refine is a remote checkpoint: flush locally now, push or queue.
	if err := s.deps.Persister.SaveReportLocal(report); err != nil {
		s.notify("durability_degraded", map[string]string{"reportId": report.ID})
	}

	// Photos retry at every checkpoint. A refine-time failure is
	// tolerated; the submit guard is where it blocks.
	if photos != nil {
		if err := photos.FlushPending(ctx, report.ID); err != nil {
			log.Printf("⚠️ Photo flush at refine incomplete, will retry at submit: %v", err)
		}
	}

	queued, err := checkpoint.Checkpoint(ctx, report)
	if err != nil {
		// Could not even queue locally; roll the transition back.
		s.mu.Lock()
		s.report.Status = models.ReportStatusDraft
		s.mu.Unlock()
		return nil, fmt.Errorf("refine checkpoint failed: %w", err)
	}

	s.notify("report_refined", map[string]string{"reportId": report.ID})
	return &CheckpointOutcome{Queued: queued}, nil
}

// Submit runs the refined -> submitted transition. It requires every
// photo flushed, a generated document, and a direct (not queued) remote
// write; any failure blocks the transition with a specific reason.
func (s *Session) Submit(ctx context.Context, photos PhotoFlusher, docs DocumentBuilder, checkpoint Checkpointer, purger Purger) error {
	s.mu.Lock()
	if s.report.IsTerminal() {
		s.mu.Unlock()
		return ErrReportSubmitted
	}
	if s.report.Status != models.ReportStatusRefined {
		s.mu.Unlock()
		return ErrNotRefined
	}
	report := s.snapshotLocked()
	s.mu.Unlock()
	sections := resolvedSections(report)

	if err := photos.FlushPending(ctx, report.ID); err != nil {
		return &GuardError{
			Code:    "photos_pending",
			Message: fmt.Sprintf("photo upload incomplete, retry when online: %v", err),
		}
	}

	url, err := docs.Build(ctx, report, sections)
	if err != nil {
		return &GuardError{
			Code:    "document_failed",
			Message: fmt.Sprintf("document generation failed, retry: %v", err),
		}
	}

	s.mu.Lock()
	if s.report.IsTerminal() {
		s.mu.Unlock()
		return ErrReportSubmitted
	}
	s.report.DocumentURL = url
	s.report.Status = models.ReportStatusSubmitted
	report = s.snapshotLocked()
	s.mu.Unlock()

	queued, err := checkpoint.Checkpoint(ctx, report)
	if err != nil || queued {
		// Submit demands a confirmed remote write; back to refined.
		s.mu.Lock()
		s.report.Status = models.ReportStatusRefined
		s.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("remote store unreachable")
		}
		return &GuardError{
			Code:    "remote_write_failed",
			Message: fmt.Sprintf("could not confirm remote save, retry when online: %v", err),
		}
	}

	if err := s.deps.Persister.SaveReportLocal(report); err != nil {
		s.notify("durability_degraded", map[string]string{"reportId": report.ID})
	}
	if purger != nil {
		if err := purger.PurgeSubmitted(report); err != nil {
			// Leftover temporaries are harmless; next startup can sweep.
			s.notify("purge_failed", map[string]string{"reportId": report.ID})
		}
	}

	s.notify("report_submitted", map[string]string{
		"reportId":    report.ID,
		"documentUrl": url,
	})
	return nil
}

// CancelDraft deletes a never-submitted draft from both tiers
func (s *Session) CancelDraft(ctx context.Context, deleter Deleter) error {
	s.mu.Lock()
	if s.report.Status != models.ReportStatusDraft {
		s.mu.Unlock()
		return &GuardError{Code: "not_draft", Message: "only a draft report can be cancelled"}
	}
	report := s.snapshotLocked()
	s.mu.Unlock()

	s.debounce.Stop()
	if err := deleter.DeleteReport(ctx, report); err != nil {
		return err
	}
	s.notify("report_cancelled", map[string]string{"reportId": report.ID})
	return nil
}

// refineGuardsLocked enforces the draft -> refined preconditions
func (s *Session) refineGuardsLocked() error {
	if s.report.Toggle(SafetyToggle) == models.ToggleUnset {
		return &GuardError{
			Code:    "safety_unanswered",
			Message: "answer the safety question before refining",
		}
	}
	for _, c := range s.report.Contractors {
		if c.NoWork {
			continue
		}
		if !s.hasActiveWorkEntryLocked(c.ContractorID) {
			return &GuardError{
				Code:    "contractor_unaccounted",
				Message: fmt.Sprintf("log work for %s or mark no work", c.Name),
			}
		}
	}
	return nil
}

// resolvedSections materializes the layered text for every known section
func resolvedSections(r *models.Report) map[string]string {
	keys := make(map[string]bool)
	for k := range r.RefinedSections {
		keys[k] = true
	}
	for k := range r.SectionOverrides {
		keys[k] = true
	}
	for _, e := range r.Entries {
		if !e.Deleted {
			keys[e.Section] = true
		}
	}
	out := make(map[string]string, len(keys))
	for k := range keys {
		out[k] = SectionText(r, k, "")
	}
	return out
}

func activeEntries(r *models.Report) []models.Entry {
	var out []models.Entry
	for _, e := range r.Entries {
		if !e.Deleted {
			out = append(out, e)
		}
	}
	return out
}

func toggleMap(r *models.Report) map[string]models.ToggleValue {
	out := make(map[string]models.ToggleValue, len(r.ToggleStates))
	for k := range r.ToggleStates {
		out[k] = r.Toggle(k)
	}
	return out
}
