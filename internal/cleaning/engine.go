// Package cleaning applies the configured field rules across a chunked
// data source, producing a cleaned record set plus an append-only drop
// ledger. The ledger is the audit trail: it records why each row was
// excluded, not just how many were.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dqpipe/internal/errors"
	"dqpipe/internal/loader"
	"dqpipe/internal/validation"
	"dqpipe/pkg/contracts/domain"
)

// Engine runs validation over every chunk of a source. Validators are
// pure and stateless, so independent chunks are validated in parallel;
// results are merged back in original row order so the ledger is
// reproducible regardless of chunk size or worker count.
type Engine struct {
	rules   []domain.FieldRule
	schema  domain.ExpectedSchema
	workers int
	dedupe  bool
	logger  *slog.Logger
}

// NewEngine creates a cleaning engine. All configuration is passed in
// explicitly; the engine holds no global state, so independent runs can
// share a process without interference.
func NewEngine(rules []domain.FieldRule, schema domain.ExpectedSchema, workers int, dedupe bool, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, schema: schema, workers: workers, dedupe: dedupe, logger: logger}
}

// Result is the outcome of one cleaning run. The accounting invariant
// RowsSeen == len(Retained) + RowsDropped holds on every result the
// engine returns.
type Result struct {
	Retained    []domain.Record
	Drops       []domain.DropEntry
	RowsSeen    int
	RowsDropped int
}

// chunkOutcome carries one processed chunk back to the merge step.
type chunkOutcome struct {
	index    int
	retained []domain.Record
	drops    []domain.DropEntry
	seen     int
	dropped  int
}

// Clean processes the source chunk by chunk. A chunk that cannot be
// parsed is fatal for the run: in-flight chunks finish, the partial
// ledger stays consistent, and the error surfaces to the orchestrator.
// A record that fails validation is never fatal; it degrades to drop
// ledger entries.
//
// With dedupe enabled, exact repeats of an already seen row are dropped
// before validation. Detection runs on the sequential read path, so the
// first occurrence is the one retained no matter how chunks are sized
// or scheduled.
func (e *Engine) Clean(ctx context.Context, source loader.Source, verdict domain.SchemaVerdict) (*Result, error) {
	if verdict.Fatal() {
		return nil, errors.New(errors.CodeSchemaFatal, "refusing to clean a dataset with fatal schema drift")
	}

	header := source.Header()
	keep := e.retainedColumns(header)

	var seen map[string]struct{}
	if e.dedupe {
		seen = make(map[string]struct{})
	}

	var (
		mu       sync.Mutex
		outcomes []chunkOutcome
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	var readErr error
	index := 0
	for {
		// Reading is sequential; validation of the chunk is handed to
		// the worker pool. Stop handing out work once the run is
		// cancelled, but let in-flight chunks complete so the ledger
		// never ends up half-written.
		if groupCtx.Err() != nil {
			break
		}

		chunk, err := source.Next()
		if err != nil {
			readErr = err
			break
		}
		if chunk == nil {
			break
		}

		var dup map[int]bool
		if seen != nil {
			dup = markDuplicates(chunk, header, seen)
		}

		idx, c := index, chunk
		index++
		group.Go(func() error {
			outcome := e.processChunk(groupCtx, idx, c, keep, dup)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeChunkParseFatal, "cleaning cancelled before all chunks were read", err)
	}

	return mergeOutcomes(outcomes), nil
}

// processChunk validates every record of one chunk. Positions listed
// in dup were identified as duplicate rows on the read path and skip
// validation entirely.
func (e *Engine) processChunk(ctx context.Context, index int, chunk *domain.Chunk, keep map[string]bool, dup map[int]bool) chunkOutcome {
	outcome := chunkOutcome{index: index, seen: len(chunk.Records)}

	for i, record := range chunk.Records {
		rowIndex := chunk.Offset + i
		if dup[i] {
			outcome.dropped++
			outcome.drops = append(outcome.drops, domain.NewDropEntry(rowIndex, "*", domain.ReasonDuplicate, ""))
			continue
		}
		results := validation.ValidateRecord(record, e.rules)

		if validation.RecordOK(results, e.rules) {
			outcome.retained = append(outcome.retained, projectRecord(record, keep))
			continue
		}

		outcome.dropped++
		for j, res := range results {
			if res.OK {
				continue
			}
			// Optional rules only reach the ledger on genuine value
			// failures; empty or absent optional fields are not audit
			// events. Required-rule failures always make the ledger.
			if !e.rules[j].Required && (res.Reason == domain.ReasonMissingValue || res.Reason == domain.ReasonMissingColumn) {
				continue
			}
			outcome.drops = append(outcome.drops, domain.NewDropEntry(rowIndex, res.Column, res.Reason, res.Raw))
		}
	}

	e.logger.InfoContext(ctx, "chunk_cleaned",
		slog.Int("chunk_index", index),
		slog.Int("chunk_offset", chunk.Offset),
		slog.Int("rows_seen", outcome.seen),
		slog.Int("rows_dropped", outcome.dropped))

	return outcome
}

// markDuplicates records the first occurrence of each row in seen and
// returns the in-chunk positions of repeats. It must run on the
// sequential read path: the first occurrence wins regardless of worker
// scheduling.
func markDuplicates(chunk *domain.Chunk, header []string, seen map[string]struct{}) map[int]bool {
	var dup map[int]bool
	for i, record := range chunk.Records {
		key := recordKey(record, header)
		if _, ok := seen[key]; ok {
			if dup == nil {
				dup = make(map[int]bool)
			}
			dup[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}

// recordKey serializes a record over the header columns. The unit
// separator keeps adjacent cells from colliding.
func recordKey(record domain.Record, header []string) string {
	var b strings.Builder
	for i, col := range header {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(record[col])
	}
	return b.String()
}

// retainedColumns returns the set of header columns the cleaned output
// keeps: everything the schema knows about. Unexpected columns are
// tolerable drift and are dropped from the output.
func (e *Engine) retainedColumns(header []string) map[string]bool {
	known := make(map[string]bool)
	for _, col := range e.schema.Columns() {
		known[col] = true
	}
	keep := make(map[string]bool, len(header))
	for _, col := range header {
		if known[col] {
			keep[col] = true
		}
	}
	return keep
}

// projectRecord copies a record keeping only the schema's columns.
func projectRecord(record domain.Record, keep map[string]bool) domain.Record {
	out := make(domain.Record, len(keep))
	for col := range keep {
		out[col] = record[col]
	}
	return out
}

// mergeOutcomes reassembles chunk results in original row order. Chunk
// outcomes arrive in completion order; sorting by chunk index restores
// input order for both the retained rows and the ledger, which is what
// makes the ledger identical across chunk sizes and worker counts.
func mergeOutcomes(outcomes []chunkOutcome) *Result {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].index < outcomes[j].index
	})

	result := &Result{}
	for _, o := range outcomes {
		result.Retained = append(result.Retained, o.retained...)
		result.Drops = append(result.Drops, o.drops...)
		result.RowsSeen += o.seen
		result.RowsDropped += o.dropped
	}
	return result
}

// Verify checks the accounting invariant. Callers must not run
// analysis on a result that fails it.
func (r *Result) Verify() error {
	if r.RowsSeen != len(r.Retained)+r.RowsDropped {
		return fmt.Errorf("accounting mismatch: seen=%d retained=%d dropped=%d",
			r.RowsSeen, len(r.Retained), r.RowsDropped)
	}
	return nil
}
