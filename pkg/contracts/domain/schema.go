package domain

// ExpectedSchema is the ordered set of column names a pipeline was
// built against, split into required and optional columns. It is
// compared against each file's actual header on every run and is
// immutable once loaded.
type ExpectedSchema struct {
	Required []string `json:"required" yaml:"required" validate:"required,min=1"`
	Optional []string `json:"optional,omitempty" yaml:"optional"`
}

// Columns returns required then optional columns in declaration order.
func (s ExpectedSchema) Columns() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

// IsRequired reports whether the column is part of the required set.
func (s ExpectedSchema) IsRequired(column string) bool {
	for _, c := range s.Required {
		if c == column {
			return true
		}
	}
	return false
}

// DriftVerdict classifies how a file's header relates to the expected
// schema.
type DriftVerdict string

const (
	// VerdictMatch means the header carries every expected column.
	VerdictMatch DriftVerdict = "match"
	// VerdictDriftTolerable means unexpected columns are present or
	// optional columns are missing; the run proceeds.
	VerdictDriftTolerable DriftVerdict = "drift_tolerable"
	// VerdictDriftFatal means a required column is missing; the run
	// must abort before any row is processed.
	VerdictDriftFatal DriftVerdict = "drift_fatal"
)

// SchemaVerdict is the outcome of comparing an actual header against
// the expected schema. A renamed required column surfaces as one entry
// in MissingRequired plus one in Unexpected.
type SchemaVerdict struct {
	Verdict         DriftVerdict `json:"verdict"`
	MissingRequired []string     `json:"missing_required,omitempty"`
	MissingOptional []string     `json:"missing_optional,omitempty"`
	Unexpected      []string     `json:"unexpected,omitempty"`
}

// Fatal reports whether the verdict requires the run to abort.
func (v SchemaVerdict) Fatal() bool {
	return v.Verdict == VerdictDriftFatal
}
