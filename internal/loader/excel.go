package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// excelSource serves chunks out of a fully loaded worksheet. Workbooks
// in this pipeline are client uploads, small enough to hold in memory;
// chunking still bounds what downstream stages see at once.
type excelSource struct {
	file      *excelize.File
	header    []string
	rows      [][]string
	chunkSize int
	cursor    int
}

func openExcel(path string, chunkSize int, aliases map[string][]string) (*excelSource, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLoad, fmt.Sprintf("failed to open %s", path), err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, errors.New(errors.CodeLoad, fmt.Sprintf("workbook %s has no sheets", path))
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		file.Close()
		return nil, errors.Wrap(errors.CodeChunkParseFatal,
			fmt.Sprintf("failed to read sheet %s", sheets[0]), err)
	}
	if len(rows) == 0 {
		file.Close()
		return nil, errors.New(errors.CodeLoad, fmt.Sprintf("sheet %s has no header row", sheets[0]))
	}

	return &excelSource{
		file:      file,
		header:    normalizeHeader(rows[0], aliases),
		rows:      rows[1:],
		chunkSize: chunkSize,
	}, nil
}

func (s *excelSource) Header() []string {
	return s.header
}

func (s *excelSource) Next() (*domain.Chunk, error) {
	if s.cursor >= len(s.rows) {
		return nil, nil
	}

	end := s.cursor + s.chunkSize
	if end > len(s.rows) {
		end = len(s.rows)
	}

	chunk := &domain.Chunk{Offset: s.cursor}
	for _, row := range s.rows[s.cursor:end] {
		chunk.Records = append(chunk.Records, rowToRecord(s.header, row))
	}
	s.cursor = end
	return chunk, nil
}

func (s *excelSource) Close() error {
	return s.file.Close()
}
