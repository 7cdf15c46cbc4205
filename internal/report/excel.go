// Package report renders a run's metrics, drop ledger and cleaned
// records into the artifacts shipped to the client: an Excel workbook
// and a cleaned CSV.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"dqpipe/internal/errors"
	"dqpipe/internal/quality"
	"dqpipe/pkg/contracts/domain"
)

const reportVersion = "2.0"

// Sheet names, in workbook order.
const (
	sheetSummary = "Pipeline Summary"
	sheetLedger  = "Drop Ledger"
	sheetCleaned = "Cleaned Data"
)

// Writer renders Excel reports into a target directory.
type Writer struct {
	dir        string
	clientName string
	logger     *slog.Logger
}

// NewWriter creates a report writer.
func NewWriter(dir, clientName string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, clientName: clientName, logger: logger}
}

// WriteExcel writes the workbook and returns its path. Filenames are
// timestamped so reruns never overwrite an earlier report.
func (w *Writer) WriteExcel(metrics *domain.QualityMetrics, severity domain.Severity, stats []domain.ColumnStats, drops []domain.DropEntry, cleaned []domain.Record, columns []string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to create reports directory", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(w.dir, fmt.Sprintf("analysis_report_%s.xlsx", timestamp))

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, metrics, severity, stats, timestamp); err != nil {
		return "", err
	}
	if err := w.writeLedger(f, drops); err != nil {
		return "", err
	}
	if err := w.writeCleaned(f, cleaned, columns); err != nil {
		return "", err
	}

	// Drop the default sheet excelize creates.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to save workbook", err)
	}

	// A zero-byte report must not reach the notification stage.
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", errors.New(errors.CodeReport, "generated report is empty or missing")
	}

	w.logger.Info("excel_report_written",
		slog.String("path", path),
		slog.Int("drop_entries", len(drops)),
		slog.Int("cleaned_rows", len(cleaned)))

	return path, nil
}

// writeSummary renders the key/value summary sheet.
func (w *Writer) writeSummary(f *excelize.File, metrics *domain.QualityMetrics, severity domain.Severity, stats []domain.ColumnStats, timestamp string) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return errors.Wrap(errors.CodeReport, "failed to create summary sheet", err)
	}

	rows := [][]interface{}{
		{"Report Version", reportVersion},
		{"Generated At", timestamp},
		{"Client", w.clientName},
		{"Rows Seen", metrics.RowsSeen},
		{"Rows Retained", metrics.RowsRetained},
		{"Rows Dropped", metrics.RowsDropped},
		{"Drop Rate", fmt.Sprintf("%.2f%%", metrics.DropRate*100)},
		{"Severity", severity.String()},
	}
	for _, reason := range quality.TopReasons(metrics) {
		rows = append(rows, []interface{}{"Dropped: " + string(reason), metrics.ReasonCounts[reason]})
	}
	for _, st := range stats {
		rows = append(rows,
			[]interface{}{"Mean: " + st.Column, st.Mean},
			[]interface{}{"Min: " + st.Column, st.Min},
			[]interface{}{"Max: " + st.Column, st.Max},
			[]interface{}{"Sum: " + st.Column, st.Sum})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return errors.Wrap(errors.CodeReport, "failed to write summary row", err)
		}
	}

	w.boldColumn(f, sheetSummary, "A1", fmt.Sprintf("A%d", len(rows)))
	w.highlightSeverity(f, severity)
	f.SetColWidth(sheetSummary, "A", "A", 28)
	f.SetColWidth(sheetSummary, "B", "B", 22)
	return nil
}

// writeLedger renders the full drop ledger, one row per failing field.
func (w *Writer) writeLedger(f *excelize.File, drops []domain.DropEntry) error {
	if _, err := f.NewSheet(sheetLedger); err != nil {
		return errors.Wrap(errors.CodeReport, "failed to create ledger sheet", err)
	}

	header := []interface{}{"Row", "Column", "Reason", "Raw Value"}
	if err := f.SetSheetRow(sheetLedger, "A1", &header); err != nil {
		return errors.Wrap(errors.CodeReport, "failed to write ledger header", err)
	}

	for i, entry := range drops {
		row := []interface{}{entry.RowIndex, entry.Column, string(entry.Reason), entry.RawValue}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetLedger, cell, &row); err != nil {
			return errors.Wrap(errors.CodeReport, "failed to write ledger row", err)
		}
	}

	w.boldColumn(f, sheetLedger, "A1", "D1")
	f.SetColWidth(sheetLedger, "B", "D", 24)
	return nil
}

// writeCleaned renders the retained records in schema column order.
func (w *Writer) writeCleaned(f *excelize.File, cleaned []domain.Record, columns []string) error {
	if _, err := f.NewSheet(sheetCleaned); err != nil {
		return errors.Wrap(errors.CodeReport, "failed to create cleaned sheet", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetCleaned, "A1", &header); err != nil {
		return errors.Wrap(errors.CodeReport, "failed to write cleaned header", err)
	}

	for i, record := range cleaned {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = record[col]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetCleaned, cell, &row); err != nil {
			return errors.Wrap(errors.CodeReport, "failed to write cleaned row", err)
		}
	}

	w.boldColumn(f, sheetCleaned, "A1", cellName(len(columns), 1))
	return nil
}

// boldColumn applies a bold style over a cell range, best effort.
func (w *Writer) boldColumn(f *excelize.File, sheet, from, to string) {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return
	}
	f.SetCellStyle(sheet, from, to, style)
}

// highlightSeverity fills the severity cell red for HIGH and green for
// LOW, mirroring the alert colors clients already know from the email.
func (w *Writer) highlightSeverity(f *excelize.File, severity domain.Severity) {
	color := "C6EFCE"
	switch severity {
	case domain.SeverityHigh:
		color = "FFC7CE"
	case domain.SeverityMedium:
		color = "FFEB9C"
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return
	}
	// Severity is the 8th summary row.
	f.SetCellStyle(sheetSummary, "B8", "B8", style)
}

// cellName converts 1-based coordinates, ignoring overflow errors.
func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A" + strconv.Itoa(row)
	}
	return name
}
