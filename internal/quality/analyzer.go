// Package quality aggregates a run's drop ledger into metrics and maps
// the metrics onto a severity level via configured threshold ceilings.
package quality

import (
	"sort"
	"time"

	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// Analyze recomputes QualityMetrics in full from the drop ledger.
//
// The ledger carries one entry per failing field, so a row dropped for
// three reasons appears three times; for the metrics each dropped row
// is attributed once, to its first ledger entry, which keeps reason
// counts summing exactly to rows dropped while the full ledger keeps
// the per-field detail.
//
// A dataset with zero rows is a distinct error, not a 0% drop rate: a
// silently empty file must not look healthy.
func Analyze(totalSeen int, drops []domain.DropEntry) (*domain.QualityMetrics, error) {
	if totalSeen == 0 {
		return nil, errors.New(errors.CodeEmptyDataset, "dataset contains no rows")
	}

	primary := make(map[int]domain.DropReason)
	for _, entry := range drops {
		if _, seen := primary[entry.RowIndex]; !seen {
			primary[entry.RowIndex] = entry.Reason
		}
	}

	counts := make(map[domain.DropReason]int)
	for _, reason := range primary {
		counts[reason]++
	}

	dropped := len(primary)
	return &domain.QualityMetrics{
		RowsSeen:     totalSeen,
		RowsRetained: totalSeen - dropped,
		RowsDropped:  dropped,
		DropRate:     float64(dropped) / float64(totalSeen),
		ReasonCounts: counts,
		ComputedAt:   time.Now().UTC(),
	}, nil
}

// Classify maps metrics onto a severity. Ceilings are inclusive: a
// drop rate or reason count equal to its ceiling breaches it. The
// overall severity is the maximum triggered by any single signal, so
// the classification is deterministic and order independent, and
// raising the drop rate can never lower the result.
func Classify(metrics *domain.QualityMetrics, thresholds domain.Thresholds) domain.Severity {
	severity := domain.SeverityLow

	if metrics.DropRate >= thresholds.DropRateHigh {
		severity = domain.SeverityHigh
	} else if metrics.DropRate >= thresholds.DropRateMedium {
		severity = domain.SeverityMedium
	}

	for reason, ceiling := range thresholds.ReasonCeilings {
		count := metrics.ReasonCounts[reason]
		if count == 0 || count < ceiling.Count {
			continue
		}
		triggered := domain.ParseSeverity(ceiling.Severity)
		if triggered > severity {
			severity = triggered
		}
	}

	return severity
}

// TopReasons returns reason codes ordered by descending count, ties
// broken alphabetically, for report rendering.
func TopReasons(metrics *domain.QualityMetrics) []domain.DropReason {
	reasons := make([]domain.DropReason, 0, len(metrics.ReasonCounts))
	for reason := range metrics.ReasonCounts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := metrics.ReasonCounts[reasons[i]], metrics.ReasonCounts[reasons[j]]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
