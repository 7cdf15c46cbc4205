package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// csvSource streams a CSV file chunk by chunk.
type csvSource struct {
	file      *os.File
	reader    *csv.Reader
	header    []string
	chunkSize int
	offset    int
	done      bool
}

func openCSV(path string, chunkSize int, aliases map[string][]string) (*csvSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeLoad, fmt.Sprintf("failed to open %s", path), err)
	}

	reader := csv.NewReader(file)
	// A row with too few or too many cells is a record-level defect,
	// not a parse failure: rowToRecord pads short rows and ignores
	// extra cells, the same as the Excel path. Quoting errors remain
	// fatal.
	reader.FieldsPerRecord = -1

	rawHeader, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, errors.New(errors.CodeLoad, fmt.Sprintf("file %s has no header row", path))
		}
		return nil, errors.Wrap(errors.CodeLoad, fmt.Sprintf("failed to read header of %s", path), err)
	}

	return &csvSource{
		file:      file,
		reader:    reader,
		header:    normalizeHeader(rawHeader, aliases),
		chunkSize: chunkSize,
	}, nil
}

func (s *csvSource) Header() []string {
	return s.header
}

func (s *csvSource) Next() (*domain.Chunk, error) {
	if s.done {
		return nil, nil
	}

	chunk := &domain.Chunk{Offset: s.offset}
	for len(chunk.Records) < s.chunkSize {
		row, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			// The file stopped being parseable tabular data. This is
			// fatal for the run, not a record-level drop.
			s.done = true
			return nil, errors.Wrap(errors.CodeChunkParseFatal,
				fmt.Sprintf("malformed chunk at row %d", s.offset+len(chunk.Records)), err)
		}
		chunk.Records = append(chunk.Records, rowToRecord(s.header, row))
	}

	if len(chunk.Records) == 0 {
		return nil, nil
	}
	s.offset += len(chunk.Records)
	return chunk, nil
}

func (s *csvSource) Close() error {
	return s.file.Close()
}
