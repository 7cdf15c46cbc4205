// Package schema detects column drift between a file's actual header
// and the schema the pipeline was built against. Drift detection runs
// before any row validation so a broken dataset is never silently
// scored.
package schema

import (
	"dqpipe/pkg/contracts/domain"
)

// Check compares the actual header columns against the expected schema
// and classifies the drift. It is a pure function; the caller decides
// whether to abort.
//
// A missing required column is fatal. Unexpected columns and missing
// optional columns are tolerable: the run proceeds, unexpected columns
// are ignored and missing optional columns validate as always-invalid
// for their field. A renamed required column shows up as one missing
// (fatal) plus one unexpected (tolerable) column.
func Check(actualColumns []string, expected domain.ExpectedSchema) domain.SchemaVerdict {
	actual := make(map[string]bool, len(actualColumns))
	for _, col := range actualColumns {
		actual[col] = true
	}

	verdict := domain.SchemaVerdict{Verdict: domain.VerdictMatch}

	for _, col := range expected.Required {
		if !actual[col] {
			verdict.MissingRequired = append(verdict.MissingRequired, col)
		}
	}
	for _, col := range expected.Optional {
		if !actual[col] {
			verdict.MissingOptional = append(verdict.MissingOptional, col)
		}
	}

	known := make(map[string]bool, len(expected.Required)+len(expected.Optional))
	for _, col := range expected.Columns() {
		known[col] = true
	}
	for _, col := range actualColumns {
		if !known[col] {
			verdict.Unexpected = append(verdict.Unexpected, col)
		}
	}

	switch {
	case len(verdict.MissingRequired) > 0:
		verdict.Verdict = domain.VerdictDriftFatal
	case len(verdict.MissingOptional) > 0 || len(verdict.Unexpected) > 0:
		verdict.Verdict = domain.VerdictDriftTolerable
	}

	return verdict
}
