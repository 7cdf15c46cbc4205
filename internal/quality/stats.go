package quality

import (
	"dqpipe/internal/validation"
	"dqpipe/pkg/contracts/domain"
)

// Summarize computes descriptive statistics over the retained rows for
// every numeric and currency column, in rule order. Cells that do not
// parse as numbers are skipped; a column with no parseable cells is
// omitted entirely.
func Summarize(retained []domain.Record, rules []domain.FieldRule) []domain.ColumnStats {
	var stats []domain.ColumnStats
	for _, rule := range rules {
		if rule.Kind != domain.ValidatorNumeric && rule.Kind != domain.ValidatorCurrency {
			continue
		}
		st := domain.ColumnStats{Column: rule.Column}
		for _, record := range retained {
			num, ok := validation.ParseNumeric(record[rule.Column], false)
			if !ok {
				continue
			}
			if st.Count == 0 || num < st.Min {
				st.Min = num
			}
			if st.Count == 0 || num > st.Max {
				st.Max = num
			}
			st.Sum += num
			st.Count++
		}
		if st.Count == 0 {
			continue
		}
		st.Mean = st.Sum / float64(st.Count)
		stats = append(stats, st)
	}
	return stats
}
