package report

import (
	"sort"
	"strings"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/google/uuid"
)

// Append adds a new entry to a section. The sequence number is assigned
// at call time and never renormalized, so sequences may have gaps after
// deletions; consumers order by Seq, not position.
func (s *Session) Append(section, content string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return nil, ErrReportSubmitted
	}

	entry := models.Entry{
		ID:        uuid.New().String(),
		ReportID:  s.report.ID,
		Section:   section,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Seq:       s.nextSeqLocked(section),
	}
	s.report.Entries = append(s.report.Entries, entry)

	s.schedulePersist()
	s.pushEntry(entry)
	return &s.report.Entries[len(s.report.Entries)-1], nil
}

// Edit replaces an entry's content. Timestamp and Seq never change.
func (s *Session) Edit(entryID, newContent string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return nil, ErrReportSubmitted
	}

	for i := range s.report.Entries {
		e := &s.report.Entries[i]
		if e.ID == entryID && !e.Deleted {
			e.Content = newContent
			s.schedulePersist()
			s.pushEntry(*e)
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// SoftDelete flags an entry as deleted. The record stays; ledger length
// never decreases.
func (s *Session) SoftDelete(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report.IsTerminal() {
		return ErrReportSubmitted
	}

	for i := range s.report.Entries {
		e := &s.report.Entries[i]
		if e.ID == entryID && !e.Deleted {
			e.Deleted = true
			s.schedulePersist()
			s.pushEntry(*e)
			return nil
		}
	}
	return ErrEntryNotFound
}

// ListActive returns the non-deleted entries of a section ordered by Seq
func (s *Session) ListActive(section string) []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Entry
	for _, e := range s.report.Entries {
		if e.Section == section && !e.Deleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Sections returns the distinct section names that have active entries
func (s *Session) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, e := range s.report.Entries {
		if !e.Deleted && !seen[e.Section] {
			seen[e.Section] = true
			out = append(out, e.Section)
		}
	}
	sort.Strings(out)
	return out
}

// nextSeqLocked assigns the next sequence for a section: one past the
// highest ever assigned, so values stay unique and increasing even
// after soft deletes. Equals active-count+1 in the append-only case.
func (s *Session) nextSeqLocked(section string) int {
	max := 0
	for _, e := range s.report.Entries {
		if e.Section == section && e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1
}

// hasActiveWorkEntryLocked reports whether a contractor has at least
// one active entry in its work section.
func (s *Session) hasActiveWorkEntryLocked(contractorID string) bool {
	prefix := "work_" + contractorID
	for _, e := range s.report.Entries {
		if !e.Deleted && (e.Section == prefix || strings.HasPrefix(e.Section, prefix+"_")) {
			return true
		}
	}
	return false
}
