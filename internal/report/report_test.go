package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dqpipe/pkg/contracts/domain"
)

func sampleMetrics() *domain.QualityMetrics {
	return &domain.QualityMetrics{
		RowsSeen:     10,
		RowsRetained: 8,
		RowsDropped:  2,
		DropRate:     0.2,
		ReasonCounts: map[domain.DropReason]int{
			domain.ReasonInvalidEmail: 2,
		},
	}
}

func TestWriteCleaned(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	cleaned := []domain.Record{
		{"client_id": "1", "email": "a@example.com"},
		{"client_id": "2", "email": "b@example.com"},
	}

	path, err := w.WriteCleaned(cleaned, []string{"client_id", "email"})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(data) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3], "cleaned output carries a UTF-8 BOM")

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"client_id", "email"}, rows[0])
	assert.Equal(t, []string{"1", "a@example.com"}, rows[1])
}

func TestWriteCleanedEmpty(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), nil)

	path, err := w.WriteCleaned(nil, []string{"client_id", "email"})
	require.NoError(t, err)
	assert.FileExists(t, path, "a clean run with zero retained rows still produces the header")
}

func TestWriteExcel(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "Acme Corp", nil)

	drops := []domain.DropEntry{
		domain.NewDropEntry(3, "email", domain.ReasonInvalidEmail, "bad"),
		domain.NewDropEntry(7, "email", domain.ReasonInvalidEmail, "worse"),
	}
	cleaned := []domain.Record{
		{"client_id": "1", "email": "a@example.com"},
	}
	stats := []domain.ColumnStats{
		{Column: "balance", Count: 8, Sum: 800, Mean: 100, Min: 10, Max: 250},
	}

	path, err := w.WriteExcel(sampleMetrics(), domain.SeverityMedium, stats, drops, cleaned, []string{"client_id", "email"})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Pipeline Summary")
	assert.Contains(t, sheets, "Drop Ledger")
	assert.Contains(t, sheets, "Cleaned Data")
	assert.NotContains(t, sheets, "Sheet1")

	client, err := f.GetCellValue("Pipeline Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", client)

	severity, err := f.GetCellValue("Pipeline Summary", "B8")
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", severity)

	statLabel, err := f.GetCellValue("Pipeline Summary", "A10")
	require.NoError(t, err)
	assert.Equal(t, "Mean: balance", statLabel)
	statValue, err := f.GetCellValue("Pipeline Summary", "B10")
	require.NoError(t, err)
	assert.Equal(t, "100", statValue)

	ledgerReason, err := f.GetCellValue("Drop Ledger", "C2")
	require.NoError(t, err)
	assert.Equal(t, "invalid_email", ledgerReason)

	cleanedEmail, err := f.GetCellValue("Cleaned Data", "B2")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", cleanedEmail)
}

func TestWriteExcelTimestampedNames(t *testing.T) {
	w := NewWriter(t.TempDir(), "Acme", nil)

	first, err := w.WriteExcel(sampleMetrics(), domain.SeverityLow, nil, nil, nil, []string{"client_id"})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(first), "analysis_report_")
}
