package report

import (
	"strings"

	"github.com/fieldworks/sitereport/internal/models"
)

// SectionText resolves the display/print text for a section with a
// fixed precedence: inspector override, then AI-refined prose, then
// the raw active entries joined in sequence order, then the fallback.
// Pure function of the aggregate; no I/O.
func SectionText(r *models.Report, section, fallback string) string {
	if v := jsonString(r.SectionOverrides, section); v != "" {
		return v
	}
	if v := jsonString(r.RefinedSections, section); v != "" {
		return v
	}
	if raw := rawSectionText(r, section); raw != "" {
		return raw
	}
	return fallback
}

// rawSectionText joins a section's active entries in Seq order
func rawSectionText(r *models.Report, section string) string {
	type line struct {
		seq  int
		text string
	}
	var lines []line
	for _, e := range r.Entries {
		if e.Section == section && !e.Deleted {
			lines = append(lines, line{e.Seq, e.Content})
		}
	}
	if len(lines) == 0 {
		return ""
	}
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j-1].seq > lines[j].seq; j-- {
			lines[j-1], lines[j] = lines[j], lines[j-1]
		}
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

func jsonString(m models.JSONB, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
