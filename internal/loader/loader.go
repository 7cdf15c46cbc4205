// Package loader reads tabular client data (CSV or Excel) as a
// sequence of bounded chunks. Column names are normalized and mapped
// through the configured alias table so downstream components only ever
// see canonical names.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// Source yields a file's header and its records in bounded chunks so
// memory use is independent of file size.
type Source interface {
	// Header returns the normalized column names, in file order.
	Header() []string
	// Next returns the next chunk, or (nil, nil) when the source is
	// exhausted. A chunk that cannot be parsed as tabular data returns
	// a CHUNK_PARSE_FATAL error; no further chunks follow it.
	Next() (*domain.Chunk, error)
	// Close releases the underlying file handle.
	Close() error
}

// Open dispatches on the file extension and returns a chunked source.
func Open(path string, chunkSize int, aliases map[string][]string) (Source, error) {
	if chunkSize <= 0 {
		return nil, errors.New(errors.CodeLoad, fmt.Sprintf("invalid chunk size %d", chunkSize))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return openCSV(path, chunkSize, aliases)
	case ".xlsx", ".xlsm", ".xls":
		return openExcel(path, chunkSize, aliases)
	default:
		return nil, errors.New(errors.CodeLoad, fmt.Sprintf("unsupported file type: %s", path))
	}
}

// NormalizeColumn canonicalizes a header cell: trimmed, lowercased,
// spaces replaced with underscores.
func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "_")
}

// normalizeHeader canonicalizes every header cell and then maps known
// aliases onto their canonical column name. Aliases let clients rename
// columns (Date, JoinDate, ...) without the schema guard flagging
// drift.
func normalizeHeader(header []string, aliases map[string][]string) []string {
	aliasMap := make(map[string]string)
	for canonical, list := range aliases {
		for _, alias := range list {
			aliasMap[NormalizeColumn(alias)] = canonical
		}
	}

	out := make([]string, len(header))
	for i, cell := range header {
		col := NormalizeColumn(cell)
		if canonical, ok := aliasMap[col]; ok {
			col = canonical
		}
		out[i] = col
	}
	return out
}

// rowToRecord pairs header columns with row cells. Excel rows omit
// trailing empty cells, so short rows fill the remaining columns with
// empty values; extra cells beyond the header are ignored.
func rowToRecord(header []string, row []string) domain.Record {
	record := make(domain.Record, len(header))
	for i, col := range header {
		if i < len(row) {
			record[col] = row[i]
		} else {
			record[col] = ""
		}
	}
	return record
}
