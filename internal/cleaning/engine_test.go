package cleaning

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// fakeSource serves pre-built records in configurable chunk sizes,
// optionally failing partway through.
type fakeSource struct {
	header    []string
	records   []domain.Record
	chunkSize int
	failAfter int // chunks served before Next returns an error; -1 disables
	served    int
	cursor    int
}

func (f *fakeSource) Header() []string { return f.header }

func (f *fakeSource) Next() (*domain.Chunk, error) {
	if f.failAfter >= 0 && f.served == f.failAfter {
		return nil, errors.New(errors.CodeChunkParseFatal, "synthetic parse failure")
	}
	if f.cursor >= len(f.records) {
		return nil, nil
	}
	end := f.cursor + f.chunkSize
	if end > len(f.records) {
		end = len(f.records)
	}
	chunk := &domain.Chunk{Offset: f.cursor, Records: f.records[f.cursor:end]}
	f.cursor = end
	f.served++
	return chunk, nil
}

func (f *fakeSource) Close() error { return nil }

func testRules() []domain.FieldRule {
	return []domain.FieldRule{
		{Column: "email", Kind: domain.ValidatorEmail, Required: true},
		{Column: "amount", Kind: domain.ValidatorCurrency, Required: true, NonNegative: true},
		{Column: "phone", Kind: domain.ValidatorPhone},
	}
}

func testSchema() domain.ExpectedSchema {
	return domain.ExpectedSchema{
		Required: []string{"email", "amount"},
		Optional: []string{"phone"},
	}
}

// buildRecords produces n records where every third one has an invalid
// email and every fifth one a negative amount.
func buildRecords(n int) []domain.Record {
	records := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		r := domain.Record{
			"email":  fmt.Sprintf("user%d@example.com", i),
			"amount": "100.00",
			"phone":  "1234567",
		}
		if i%3 == 0 {
			r["email"] = "not-an-email"
		}
		if i%5 == 0 {
			r["amount"] = "-5"
		}
		records = append(records, r)
	}
	return records
}

func TestCleanAccountingInvariant(t *testing.T) {
	source := &fakeSource{
		header:    []string{"email", "amount", "phone"},
		records:   buildRecords(100),
		chunkSize: 7,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 4, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.NoError(t, err)
	require.NoError(t, result.Verify())

	assert.Equal(t, 100, result.RowsSeen)
	assert.Equal(t, result.RowsSeen, len(result.Retained)+result.RowsDropped)
	assert.NotEmpty(t, result.Drops)
}

// TestCleanChunkSizeInvariance runs the same dataset through several
// chunk sizes and worker counts and requires identical results.
func TestCleanChunkSizeInvariance(t *testing.T) {
	records := buildRecords(97)

	var baseline *Result
	for _, tc := range []struct{ chunkSize, workers int }{
		{1, 1}, {10, 1}, {10, 4}, {25, 8}, {97, 2}, {500, 4},
	} {
		t.Run(fmt.Sprintf("chunk=%d workers=%d", tc.chunkSize, tc.workers), func(t *testing.T) {
			source := &fakeSource{
				header:    []string{"email", "amount", "phone"},
				records:   records,
				chunkSize: tc.chunkSize,
				failAfter: -1,
			}
			engine := NewEngine(testRules(), testSchema(), tc.workers, false, nil)
			result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
			require.NoError(t, err)
			require.NoError(t, result.Verify())

			if baseline == nil {
				baseline = result
				return
			}
			assert.Equal(t, baseline.RowsSeen, result.RowsSeen)
			assert.Equal(t, baseline.RowsDropped, result.RowsDropped)
			assert.Equal(t, baseline.Retained, result.Retained)
			assert.Equal(t, baseline.Drops, result.Drops)
		})
	}
}

func TestCleanLedgerDetail(t *testing.T) {
	source := &fakeSource{
		header: []string{"email", "amount", "phone"},
		records: []domain.Record{
			{"email": "ok@example.com", "amount": "10", "phone": "1234567"},
			{"email": "broken", "amount": "-1", "phone": "1234567"},
			{"email": "ok2@example.com", "amount": "10", "phone": "too-short"},
		},
		chunkSize: 10,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 1, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.NoError(t, err)

	// Row 1 fails both required fields and yields two ledger entries.
	assert.Equal(t, 1, result.RowsDropped)
	require.Len(t, result.Drops, 2)
	assert.Equal(t, 1, result.Drops[0].RowIndex)
	assert.Equal(t, "email", result.Drops[0].Column)
	assert.Equal(t, domain.ReasonInvalidEmail, result.Drops[0].Reason)
	assert.Equal(t, "amount", result.Drops[1].Column)
	assert.Equal(t, domain.ReasonInvalidCurrency, result.Drops[1].Reason)

	// Row 2 fails only the optional phone rule, so it is retained, and
	// retained rows never reach the ledger.
	assert.Len(t, result.Retained, 2)
	found := false
	for _, entry := range result.Drops {
		if entry.RowIndex == 2 {
			found = true
		}
	}
	assert.False(t, found, "retained rows must not reach the ledger")
}

func TestCleanOptionalEmptyNotAudited(t *testing.T) {
	source := &fakeSource{
		header: []string{"email", "amount", "phone"},
		records: []domain.Record{
			{"email": "bad", "amount": "10", "phone": ""},
		},
		chunkSize: 10,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 1, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.NoError(t, err)

	// The empty optional phone must not add noise next to the real
	// email failure.
	require.Len(t, result.Drops, 1)
	assert.Equal(t, "email", result.Drops[0].Column)
}

func TestCleanDedupeDropsRepeatedRows(t *testing.T) {
	records := []domain.Record{
		{"email": "a@example.com", "amount": "10", "phone": "1234567"},
		{"email": "b@example.com", "amount": "20", "phone": "1234567"},
		{"email": "a@example.com", "amount": "10", "phone": "1234567"},
		{"email": "a@example.com", "amount": "10", "phone": "1234567"},
	}
	source := &fakeSource{
		header:    []string{"email", "amount", "phone"},
		records:   records,
		chunkSize: 2,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 4, true, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.NoError(t, err)
	require.NoError(t, result.Verify())

	// Rows 2 and 3 repeat row 0; the first occurrence stays retained.
	assert.Equal(t, 4, result.RowsSeen)
	assert.Equal(t, 2, result.RowsDropped)
	assert.Len(t, result.Retained, 2)
	require.Len(t, result.Drops, 2)
	assert.Equal(t, 2, result.Drops[0].RowIndex)
	assert.Equal(t, domain.ReasonDuplicate, result.Drops[0].Reason)
	assert.Equal(t, 3, result.Drops[1].RowIndex)
	assert.Equal(t, domain.ReasonDuplicate, result.Drops[1].Reason)
}

func TestCleanDedupeDisabledKeepsRepeats(t *testing.T) {
	records := []domain.Record{
		{"email": "a@example.com", "amount": "10", "phone": "1234567"},
		{"email": "a@example.com", "amount": "10", "phone": "1234567"},
	}
	source := &fakeSource{
		header:    []string{"email", "amount", "phone"},
		records:   records,
		chunkSize: 10,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 1, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.NoError(t, err)

	assert.Len(t, result.Retained, 2)
	assert.Empty(t, result.Drops)
}

// TestCleanDedupeChunkInvariance checks that duplicate detection keeps
// the first occurrence and produces the same ledger no matter how the
// input is chunked or parallelized.
func TestCleanDedupeChunkInvariance(t *testing.T) {
	records := buildRecords(60)
	records = append(records, buildRecords(60)...)

	var baseline *Result
	for _, tc := range []struct{ chunkSize, workers int }{
		{1, 1}, {7, 4}, {120, 2},
	} {
		t.Run(fmt.Sprintf("chunk=%d workers=%d", tc.chunkSize, tc.workers), func(t *testing.T) {
			source := &fakeSource{
				header:    []string{"email", "amount", "phone"},
				records:   records,
				chunkSize: tc.chunkSize,
				failAfter: -1,
			}
			engine := NewEngine(testRules(), testSchema(), tc.workers, true, nil)
			result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
			require.NoError(t, err)
			require.NoError(t, result.Verify())

			if baseline == nil {
				baseline = result
				return
			}
			assert.Equal(t, baseline.Retained, result.Retained)
			assert.Equal(t, baseline.Drops, result.Drops)
		})
	}
}

func TestCleanParseFailureIsFatal(t *testing.T) {
	source := &fakeSource{
		header:    []string{"email", "amount", "phone"},
		records:   buildRecords(50),
		chunkSize: 10,
		failAfter: 2,
	}

	engine := NewEngine(testRules(), testSchema(), 2, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, errors.CodeChunkParseFatal, errors.CodeOf(err))
}

func TestCleanRefusesFatalVerdict(t *testing.T) {
	source := &fakeSource{header: []string{"email"}, chunkSize: 10, failAfter: -1}
	engine := NewEngine(testRules(), testSchema(), 1, false, nil)

	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictDriftFatal})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, errors.CodeSchemaFatal, errors.CodeOf(err))
}

func TestCleanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{
		header:    []string{"email", "amount", "phone"},
		records:   buildRecords(50),
		chunkSize: 10,
		failAfter: -1,
	}
	engine := NewEngine(testRules(), testSchema(), 2, false, nil)

	result, err := engine.Clean(ctx, source, domain.SchemaVerdict{Verdict: domain.VerdictMatch})
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestCleanProjectsUnexpectedColumns(t *testing.T) {
	source := &fakeSource{
		header: []string{"email", "amount", "phone", "internal_notes"},
		records: []domain.Record{
			{"email": "ok@example.com", "amount": "10", "phone": "1234567", "internal_notes": "secret"},
		},
		chunkSize: 10,
		failAfter: -1,
	}

	engine := NewEngine(testRules(), testSchema(), 1, false, nil)
	result, err := engine.Clean(context.Background(), source, domain.SchemaVerdict{Verdict: domain.VerdictDriftTolerable})
	require.NoError(t, err)

	require.Len(t, result.Retained, 1)
	_, present := result.Retained[0]["internal_notes"]
	assert.False(t, present, "unexpected columns must not survive cleaning")
}
