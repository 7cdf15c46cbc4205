package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dqpipe/internal/errors"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Email", "email"},
		{"  Signup Date  ", "signup_date"},
		{"CLIENT ID", "client_id"},
		{"phone", "phone"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeColumn(tt.in))
	}
}

func TestOpenCSV(t *testing.T) {
	path := writeTempCSV(t, "Client ID,Email,Signup Date\n1,a@example.com,2025-01-01\n2,b@example.com,2025-01-02\n3,c@example.com,2025-01-03\n")

	source, err := Open(path, 2, nil)
	require.NoError(t, err)
	defer source.Close()

	assert.Equal(t, []string{"client_id", "email", "signup_date"}, source.Header())

	chunk, err := source.Next()
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, 0, chunk.Offset)
	require.Len(t, chunk.Records, 2)
	assert.Equal(t, "a@example.com", chunk.Records[0]["email"])

	chunk, err = source.Next()
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, 2, chunk.Offset)
	require.Len(t, chunk.Records, 1)

	chunk, err = source.Next()
	require.NoError(t, err)
	assert.Nil(t, chunk, "exhausted source returns nil chunk")
}

func TestOpenCSVAliases(t *testing.T) {
	path := writeTempCSV(t, "ID,E-Mail,JoinDate\n1,a@example.com,2025-01-01\n")

	aliases := map[string][]string{
		"client_id":   {"ID"},
		"email":       {"E-Mail"},
		"signup_date": {"JoinDate", "Date"},
	}

	source, err := Open(path, 10, aliases)
	require.NoError(t, err)
	defer source.Close()

	assert.Equal(t, []string{"client_id", "email", "signup_date"}, source.Header())
}

func TestOpenCSVRaggedRows(t *testing.T) {
	// Row 2 omits the trailing phone cell and row 3 carries an extra
	// one. Both degrade to record-level issues, matching the Excel
	// path: short rows become missing values, extra cells are ignored.
	path := writeTempCSV(t, "Client ID,Email,Phone\n1,a@example.com,1234567\n2,b@example.com\n3,c@example.com,7654321,extra\n")

	source, err := Open(path, 10, nil)
	require.NoError(t, err)
	defer source.Close()

	chunk, err := source.Next()
	require.NoError(t, err)
	require.NotNil(t, chunk)
	require.Len(t, chunk.Records, 3)

	phone, present := chunk.Records[1]["phone"]
	assert.True(t, present)
	assert.Empty(t, phone)
	assert.Equal(t, "7654321", chunk.Records[2]["phone"])

	chunk, err = source.Next()
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestOpenCSVUnterminatedQuoteIsFatal(t *testing.T) {
	path := writeTempCSV(t, "email,name\na@example.com,ok\n\"broken,row\n")

	source, err := Open(path, 10, nil)
	require.NoError(t, err)
	defer source.Close()

	chunk, err := source.Next()
	require.Error(t, err)
	assert.Nil(t, chunk)
	assert.Equal(t, errors.CodeChunkParseFatal, errors.CodeOf(err))
}

func TestOpenCSVEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")

	_, err := Open(path, 10, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoad, errors.CodeOf(err))
}

func TestOpenUnsupportedExtension(t *testing.T) {
	_, err := Open("clients.json", 10, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoad, errors.CodeOf(err))
}

func TestOpenInvalidChunkSize(t *testing.T) {
	_, err := Open("clients.csv", 0, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoad, errors.CodeOf(err))
}

func TestOpenExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clients.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Client ID", "Email", "Phone"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"1", "a@example.com", "1234567"}))
	// Row 3 omits the trailing phone cell, as Excel does for empty cells.
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"2", "b@example.com"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	source, err := Open(path, 10, nil)
	require.NoError(t, err)
	defer source.Close()

	assert.Equal(t, []string{"client_id", "email", "phone"}, source.Header())

	chunk, err := source.Next()
	require.NoError(t, err)
	require.NotNil(t, chunk)
	require.Len(t, chunk.Records, 2)

	// Short rows fill absent cells with empty strings so a ragged row
	// is a missing value, not a missing column.
	phone, present := chunk.Records[1]["phone"]
	assert.True(t, present)
	assert.Empty(t, phone)

	chunk, err = source.Next()
	require.NoError(t, err)
	assert.Nil(t, chunk)
}
