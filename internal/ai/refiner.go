package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/report"
)

// TextGenerator is the model call behind refinement
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Refiner turns a report's raw entries into polished section prose via
// one model round-trip.
type Refiner struct {
	gen     TextGenerator
	timeout time.Duration
}

// NewRefiner creates a refiner over a text generator
func NewRefiner(gen TextGenerator, timeout time.Duration) *Refiner {
	return &Refiner{gen: gen, timeout: timeout}
}

// Refine sends the day's notes to the model and returns refined prose
// per section. Any failure is returned as-is; the caller keeps the
// report a draft.
func (r *Refiner) Refine(ctx context.Context, in report.RefineInput) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.gen.GenerateContent(ctx, buildPrompt(in))
	if err != nil {
		return nil, err
	}

	sections, err := parseSections(raw)
	if err != nil {
		return nil, fmt.Errorf("model returned unusable output: %w", err)
	}
	return sections, nil
}

// buildPrompt lays out the notes grouped by section, with toggle answers
// and contractor status as context.
func buildPrompt(in report.RefineInput) string {
	var b strings.Builder
	b.WriteString(refinePrompt)
	fmt.Fprintf(&b, "\n### REPORT\nProject: %s\nDate: %s\n", in.ProjectID, in.ReportDate)

	b.WriteString("\n### CONTRACTORS\n")
	for _, c := range in.Contractors {
		if c.NoWork {
			fmt.Fprintf(&b, "- %s: no work today\n", c.Name)
		} else {
			fmt.Fprintf(&b, "- %s: on site\n", c.Name)
		}
	}

	if len(in.Toggles) > 0 {
		b.WriteString("\n### QUESTIONS ANSWERED\n")
		for k, v := range in.Toggles {
			if v != models.ToggleUnset {
				fmt.Fprintf(&b, "- %s: %s\n", k, v)
			}
		}
	}

	b.WriteString("\n### RAW NOTES BY SECTION\n")
	bySection := make(map[string][]string)
	var order []string
	for _, e := range in.Entries {
		if _, seen := bySection[e.Section]; !seen {
			order = append(order, e.Section)
		}
		bySection[e.Section] = append(bySection[e.Section], e.Content)
	}
	for _, section := range order {
		fmt.Fprintf(&b, "\n[%s]\n", section)
		for _, line := range bySection[section] {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

// parseSections decodes the model's JSON object, tolerating markdown
// code fences around it.
func parseSections(raw string) (map[string]string, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var sections map[string]string
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no sections in response")
	}
	return sections, nil
}
