package domain

// Record is one input row: a mapping from normalized column name to the
// raw string value as read from the source file. Values stay untyped
// until a validator inspects them; the record itself is never mutated.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Chunk is a bounded batch of records read from one source file.
// Offset is the absolute index of the first record within the input,
// counting data rows from zero (the header row is not counted).
type Chunk struct {
	Offset  int      `json:"offset"`
	Records []Record `json:"records"`
}

// ValidatorKind identifies a field-level validator.
type ValidatorKind string

const (
	ValidatorEmail    ValidatorKind = "email"
	ValidatorPhone    ValidatorKind = "phone"
	ValidatorDate     ValidatorKind = "date"
	ValidatorNumeric  ValidatorKind = "numeric"
	ValidatorCurrency ValidatorKind = "currency"
	ValidatorText     ValidatorKind = "text"
)

// FieldRule binds one column to a validator. Rules are immutable after
// configuration load; a record fails as a whole if any required rule
// fails.
type FieldRule struct {
	Column      string        `json:"column" yaml:"column" validate:"required"`
	Kind        ValidatorKind `json:"kind" yaml:"kind" validate:"required,oneof=email phone date numeric currency text"`
	Required    bool          `json:"required" yaml:"required"`
	NonNegative bool          `json:"non_negative,omitempty" yaml:"non_negative"`
	DateFormats []string      `json:"date_formats,omitempty" yaml:"date_formats"`
}
