package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/ports"
)

// Report formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

const (
	tasksSheet   = "Tasks"
	summarySheet = "Summary"
)

var reportHeader = []string{"id", "text", "completed", "priority", "category", "dueDate", "createdAt", "completedAt"}

// ReportService renders read-only exports of a task list
type ReportService struct {
	clock Clock
}

var _ ports.ReportService = (*ReportService)(nil)

// NewReportService creates a new report service
func NewReportService(clock Clock) *ReportService {
	if clock == nil {
		clock = RealClock{}
	}
	return &ReportService{clock: clock}
}

// Render encodes tasks and stats in the requested format.
func (s *ReportService) Render(format string, tasks []entities.Task, stats entities.Stats) (*ports.Report, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	var (
		body        []byte
		contentType string
		err         error
	)

	switch format {
	case FormatJSON:
		contentType = "application/json"
		body, err = json.MarshalIndent(tasks, "", "  ")
	case FormatCSV:
		contentType = "text/csv"
		body, err = renderCSV(tasks)
	case FormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		body, err = renderXLSX(tasks, stats)
	case FormatPDF:
		contentType = "application/pdf"
		body, err = renderPDF(tasks, stats, s.clock.Now())
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", entities.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", format, err)
	}

	return &ports.Report{
		Format:      format,
		ContentType: contentType,
		FileName:    fmt.Sprintf("future-tasks-report-%s.%s", s.clock.Now().Format(entities.DateLayout), format),
		Body:        body,
	}, nil
}

func reportRow(t entities.Task) []string {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.String()
	}
	completedAt := ""
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Text,
		strconv.FormatBool(t.Completed),
		string(t.Priority),
		string(t.Category),
		due,
		t.CreatedAt.Format(time.RFC3339),
		completedAt,
	}
}

func renderCSV(tasks []entities.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := w.Write(reportRow(t)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(tasks []entities.Task, stats entities.Stats) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tasksSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(tasksSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(tasksSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(tasksSheet, "B", "B", 48); err != nil {
		return nil, err
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{t.ID, t.Text, t.Completed, string(t.Priority), string(t.Category)}
		for _, v := range reportRow(t)[5:] {
			row = append(row, v)
		}
		if err := f.SetSheetRow(tasksSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"total", stats.Total},
		{"completed", stats.Completed},
		{"pending", stats.Pending},
		{"completionRate", stats.CompletionRate},
		{"overdue", stats.Overdue},
	}
	for i, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &line); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(tasks []entities.Task, stats entities.Stats, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("FutureTasks Report", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "FutureTasks Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", now.Format(entities.DateLayout)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Total %d, completed %d, pending %d, overdue %d, completion %d%%",
		stats.Total, stats.Completed, stats.Pending, stats.Overdue, stats.CompletionRate))
	pdf.Ln(10)

	for _, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s (%s, %s)", mark, t.Text, t.Priority, t.Category)
		if t.DueDate != nil {
			line += " due " + t.DueDate.String()
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
