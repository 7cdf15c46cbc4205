package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// CSVWriter writes the cleaned dataset into the processed-data
// directory.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a cleaned-data CSV writer.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// WriteCleaned writes the retained records in schema column order and
// returns the file path. The UTF-8 BOM keeps Excel from misreading the
// encoding when clients open the file directly.
func (w *CSVWriter) WriteCleaned(cleaned []domain.Record, columns []string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to create processed directory", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("cleaned_%s.csv", time.Now().Format("20060102_150405")))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to open cleaned output file", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to write BOM", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(columns); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to write header", err)
	}

	row := make([]string, len(columns))
	for i, record := range cleaned {
		for j, col := range columns {
			row[j] = record[col]
		}
		if err := writer.Write(row); err != nil {
			return "", errors.Wrap(errors.CodeReport, fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", errors.Wrap(errors.CodeReport, "failed to flush cleaned output", err)
	}

	w.logger.Info("cleaned_csv_written",
		slog.String("path", path),
		slog.Int("rows", len(cleaned)))

	return path, nil
}
