package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
	"github.com/fieldworks/sitereport/internal/report"
)

type cannedGenerator struct {
	response string
	err      error
	prompt   string
}

func (g *cannedGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func sampleInput() report.RefineInput {
	return report.RefineInput{
		ProjectID:  "p1",
		ReportDate: "2026-08-28",
		Entries: []models.Entry{
			{Section: "weather", Content: "cold am, warm pm", Seq: 1},
			{Section: "work_c1", Content: "pulled cable bay 2", Seq: 1},
		},
		Toggles: map[string]models.ToggleValue{
			"safety_no_incidents": models.ToggleYes,
		},
		Contractors: []models.ContractorActivity{
			{ContractorID: "c1", Name: "Apex Electrical"},
			{ContractorID: "c2", Name: "Granite Civil", NoWork: true},
		},
	}
}

func TestRefineParsesPlainJSON(t *testing.T) {
	gen := &cannedGenerator{response: `{"weather": "Cold morning, warming later.", "work_c1": "Apex pulled cable in bay 2."}`}
	r := NewRefiner(gen, time.Second)

	sections, err := r.Refine(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("refine failed: %v", err)
	}
	if sections["weather"] != "Cold morning, warming later." {
		t.Errorf("weather = %q", sections["weather"])
	}
	if len(sections) != 2 {
		t.Errorf("expected 2 sections, got %d", len(sections))
	}
}

func TestRefineToleratesCodeFences(t *testing.T) {
	gen := &cannedGenerator{response: "```json\n{\"weather\": \"Clear.\"}\n```"}
	r := NewRefiner(gen, time.Second)

	sections, err := r.Refine(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("refine failed: %v", err)
	}
	if sections["weather"] != "Clear." {
		t.Errorf("weather = %q", sections["weather"])
	}
}

func TestRefineRejectsGarbage(t *testing.T) {
	gen := &cannedGenerator{response: "I could not produce a report today."}
	r := NewRefiner(gen, time.Second)

	if _, err := r.Refine(context.Background(), sampleInput()); err == nil {
		t.Fatal("non-JSON output must be an error, caller keeps the draft")
	}
}

func TestPromptCarriesNotesAndRoster(t *testing.T) {
	gen := &cannedGenerator{response: `{"weather": "x"}`}
	r := NewRefiner(gen, time.Second)
	if _, err := r.Refine(context.Background(), sampleInput()); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"cold am, warm pm",
		"pulled cable bay 2",
		"Apex Electrical: on site",
		"Granite Civil: no work today",
		"safety_no_incidents: yes",
	} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
