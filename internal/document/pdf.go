package document

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/fieldworks/sitereport/internal/models"
)

// Uploader stores the finished PDF on the durable tier
type Uploader interface {
	UploadDocument(ctx context.Context, reportID string, pdf []byte) (string, error)
}

// PhotoLister supplies the photo metadata printed in the appendix
type PhotoLister interface {
	Photos(reportID string) ([]models.Photo, error)
}

// Builder renders the submitted daily report as a PDF and uploads it.
// The returned URL goes on the report record; the QR code on page one
// points back to it so a printed copy stays verifiable.
type Builder struct {
	uploader Uploader
	photos   PhotoLister
	verify   string // base URL for the QR verification link
}

// NewBuilder creates a document builder
func NewBuilder(uploader Uploader, photos PhotoLister, verifyBaseURL string) *Builder {
	return &Builder{
		uploader: uploader,
		photos:   photos,
		verify:   verifyBaseURL,
	}
}

// Build renders and uploads the report document, returning its URL
func (b *Builder) Build(ctx context.Context, r *models.Report, sections map[string]string) (string, error) {
	data, err := b.render(r, sections)
	if err != nil {
		return "", fmt.Errorf("failed to render report document: %w", err)
	}
	url, err := b.uploader.UploadDocument(ctx, r.ID, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload report document: %w", err)
	}
	return url, nil
}

func (b *Builder) render(r *models.Report, sections map[string]string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Daily Inspection Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Project: %s", r.ProjectID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", r.ReportDate), "", 1, "L", false, 0, "")

	// QR verification link in the top right corner
	qrContent := fmt.Sprintf("%s/reports/%s", strings.TrimRight(b.verify, "/"), r.ID)
	qrPng, err := qrcode.Encode(qrContent, qrcode.Low, 256)
	if err != nil {
		return nil, err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("verify_qr", opts, bytes.NewReader(qrPng))
	pdf.ImageOptions("verify_qr", 170, 12, 25, 25, false, opts, 0, "")
	pdf.Ln(8)

	// Section prose in a stable order
	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		text := sections[key]
		if text == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, sectionTitle(key), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, text, "", "L", false)
		pdf.Ln(3)
	}

	// Personnel table
	if len(r.Personnel) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Personnel On Site", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(80, 6, "Trade", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, "Count", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "Hours", "1", 1, "R", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, p := range r.Personnel {
			pdf.CellFormat(80, 6, p.Trade, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", p.Count), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", p.Hours), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	// Equipment table
	if len(r.Equipment) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Equipment", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(80, 6, "Name", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, "Hours Used", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "Status", "1", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, e := range r.Equipment {
			status := "active"
			if e.Idle {
				status = "idle"
			}
			pdf.CellFormat(80, 6, e.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", e.HoursUsed), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, status, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	// Photo appendix: captions and remote paths, the submit guard has
	// already confirmed every upload.
	if b.photos != nil {
		photos, err := b.photos.Photos(r.ID)
		if err == nil && len(photos) > 0 {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, fmt.Sprintf("Photos (%d)", len(photos)), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			for i, p := range photos {
				caption := p.Caption
				if caption == "" {
					caption = "(no caption)"
				}
				line := fmt.Sprintf("%d. %s - taken %s", i+1, caption, p.TakenAt.Format("15:04"))
				pdf.MultiCell(0, 5, line, "", "L", false)
				if p.RemotePath != "" {
					pdf.SetTextColor(100, 100, 100)
					pdf.MultiCell(0, 4, "   "+p.RemotePath, "", "L", false)
					pdf.SetTextColor(0, 0, 0)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sectionTitle turns a section key into a printable heading
func sectionTitle(key string) string {
	title := strings.ReplaceAll(key, "_", " ")
	if len(title) > 0 {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return title
}
