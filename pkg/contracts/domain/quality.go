package domain

import (
	"encoding/json"
	"time"
)

// DropReason is a stable reason code attached to every drop ledger
// entry. Reason codes are part of the audit contract; reports and
// threshold rules key off them.
type DropReason string

const (
	ReasonInvalidEmail    DropReason = "invalid_email"
	ReasonInvalidPhone    DropReason = "invalid_phone"
	ReasonInvalidDate     DropReason = "invalid_date"
	ReasonInvalidNumber   DropReason = "invalid_number"
	ReasonInvalidCurrency DropReason = "invalid_currency"
	ReasonMissingValue    DropReason = "missing_value"
	ReasonMissingColumn   DropReason = "missing_column"
	ReasonEncodingError   DropReason = "encoding_error"
	ReasonDuplicate       DropReason = "duplicate_row"
)

// maxSnippetLen bounds the raw value carried into the audit trail.
const maxSnippetLen = 64

// DropEntry is one line of the append-only drop ledger: a record that
// failed validation, attributed to the exact field and reason. A record
// failing three fields yields three entries sharing one RowIndex.
type DropEntry struct {
	RowIndex int        `json:"row_index"`
	Column   string     `json:"column"`
	Reason   DropReason `json:"reason"`
	RawValue string     `json:"raw_value,omitempty"`
}

// NewDropEntry builds a ledger entry, truncating the raw value so
// oversized cells cannot bloat the audit trail.
func NewDropEntry(rowIndex int, column string, reason DropReason, raw string) DropEntry {
	if len(raw) > maxSnippetLen {
		raw = raw[:maxSnippetLen]
	}
	return DropEntry{RowIndex: rowIndex, Column: column, Reason: reason, RawValue: raw}
}

// QualityMetrics aggregates one run's drop ledger. It is recomputed in
// full from the ledger, never partially updated.
type QualityMetrics struct {
	RowsSeen     int                `json:"rows_seen"`
	RowsRetained int                `json:"rows_retained"`
	RowsDropped  int                `json:"rows_dropped"`
	DropRate     float64            `json:"drop_rate"`
	ReasonCounts map[DropReason]int `json:"reason_counts"`
	ComputedAt   time.Time          `json:"computed_at"`
}

// ColumnStats summarizes one numeric column over the retained rows.
// Cells that do not parse as numbers are excluded from Count and the
// aggregates.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Severity classifies overall data-quality risk for a run.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// String returns the canonical upper-case severity label.
func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "LOW"
	}
}

// MarshalJSON encodes the severity as its label.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a severity label.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*s = ParseSeverity(label)
	return nil
}

// ParseSeverity converts a severity label; unknown labels parse as LOW.
func ParseSeverity(label string) Severity {
	switch label {
	case "HIGH", "high":
		return SeverityHigh
	case "MEDIUM", "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Thresholds configures severity classification. Ceilings are
// inclusive: hitting a boundary value counts as breaching it.
type Thresholds struct {
	// DropRateMedium and DropRateHigh are drop-rate ceilings in [0,1].
	DropRateMedium float64 `json:"drop_rate_medium" yaml:"drop_rate_medium" validate:"gte=0,lte=1"`
	DropRateHigh   float64 `json:"drop_rate_high" yaml:"drop_rate_high" validate:"gte=0,lte=1"`
	// ReasonCeilings maps a reason code to an absolute count ceiling
	// that escalates the run to the given severity when reached.
	ReasonCeilings map[DropReason]ReasonCeiling `json:"reason_ceilings,omitempty" yaml:"reason_ceilings"`
}

// ReasonCeiling is an absolute per-reason count ceiling.
type ReasonCeiling struct {
	Count    int    `json:"count" yaml:"count" validate:"gte=0"`
	Severity string `json:"severity" yaml:"severity" validate:"oneof=MEDIUM HIGH"`
}
