package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// GenerateMinutes renders a saved session as a meeting-minutes PDF: header,
// executive summary, action items, full transcript.
func (s *PDFService) GenerateMinutes(record domain.SessionRecord, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure pdf directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Minuta %s", record.ID), false)
	pdf.SetAuthor("Realtime Meeting Copilot", false)
	pdf.AddPage()

	title := record.Title
	if strings.TrimSpace(title) == "" {
		title = "Reunión"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	startedAt := time.Unix(record.StartTime, 0).Local()
	pdf.Cell(0, 6, fmt.Sprintf("Fecha: %s", startedAt.Format("02/01/2006 15:04")))
	pdf.Ln(6)
	if record.Duration > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Duración: %d:%02d", record.Duration/60, record.Duration%60))
		pdf.Ln(6)
	}
	if len(record.Participants) > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Participantes: %s", strings.Join(record.Participants, ", ")))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	s.writeSection(pdf, "Resumen", record.Summary, true)
	pdf.Ln(8)
	s.writeActionItems(pdf, record.ActionItems)
	pdf.Ln(8)
	s.writeTranscript(pdf, record.Transcript)

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

func (s *PDFService) writeSection(pdf *gofpdf.Fpdf, title, content string, bullet bool) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		text := line
		if bullet && !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "-") {
			text = fmt.Sprintf("• %s", line)
		}
		pdf.MultiCell(0, 6, text, "", "L", false)
	}
}

func (s *PDFService) writeActionItems(pdf *gofpdf.Fpdf, items []domain.ActionItem) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Tareas")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	if len(items) == 0 {
		pdf.MultiCell(0, 6, "(sin tareas)", "", "L", false)
		return
	}

	for _, item := range items {
		line := fmt.Sprintf("• %s", item.Title)
		details := []string{}
		if item.OwnerEmail != "" {
			details = append(details, item.OwnerEmail)
		}
		if item.DueDate != "" {
			details = append(details, "vence "+item.DueDate)
		}
		if item.Priority != "" {
			details = append(details, "prioridad "+item.Priority)
		}
		if len(details) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
}

func (s *PDFService) writeTranscript(pdf *gofpdf.Fpdf, segments []domain.TranscriptSegment) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Transcripción")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)

	if len(segments) == 0 {
		pdf.MultiCell(0, 6, "(sin transcripción)", "", "L", false)
		return
	}

	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		pdf.MultiCell(0, 5, text, "", "L", false)
	}
}
