package core

import (
	"context"
	"errors"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ErrFinalized is returned when a record is added after Finalize.
var ErrFinalized = errors.New("accumulator already finalized")

// Counts summarizes a batch outcome.
type Counts struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// BatchOutcome is the read-only result of processing one file.
// Both partitions keep input order.
type BatchOutcome struct {
	accepted []CanonicalRecord
	rejected []RejectedRecord
	total    int
}

// Accepted returns the accepted records in input order.
func (o *BatchOutcome) Accepted() []CanonicalRecord { return slices.Clone(o.accepted) }

// Rejected returns the rejected records in input order.
func (o *BatchOutcome) Rejected() []RejectedRecord { return slices.Clone(o.rejected) }

func (o *BatchOutcome) Total() int         { return o.total }
func (o *BatchOutcome) AcceptedCount() int { return len(o.accepted) }
func (o *BatchOutcome) RejectedCount() int { return len(o.rejected) }

func (o *BatchOutcome) Counts() Counts {
	return Counts{Total: o.total, Accepted: len(o.accepted), Rejected: len(o.rejected)}
}

// Accumulator partitions records into accepted and rejected as they arrive.
// It is not safe for concurrent use.
type Accumulator struct {
	schema  *Schema
	outcome *BatchOutcome
}

// NewAccumulator returns an empty accumulator for a schema.
func NewAccumulator(s *Schema) *Accumulator {
	return &Accumulator{schema: s, outcome: &BatchOutcome{}}
}

// Add validates and normalizes one record. Rejections are recorded, not
// returned; only a *NormalizationInvariantError or ErrFinalized is.
func (a *Accumulator) Add(r RawRecord) error {
	if a.outcome == nil {
		return ErrFinalized
	}
	res, err := process(a.schema, r)
	if err != nil {
		return err
	}
	a.outcome.add(res)
	return nil
}

// Finalize freezes the outcome. Later calls to Add fail.
func (a *Accumulator) Finalize() *BatchOutcome {
	out := a.outcome
	a.outcome = nil
	if out == nil {
		return &BatchOutcome{}
	}
	return out
}

type recordResult struct {
	canonical *CanonicalRecord
	rejected  *RejectedRecord
}

func process(s *Schema, r RawRecord) (recordResult, error) {
	if errs := s.Validate(r); !errs.Valid() {
		return recordResult{rejected: &RejectedRecord{Raw: r, Errors: errs}}, nil
	}
	c, err := s.Normalize(r)
	if err != nil {
		return recordResult{}, err
	}
	return recordResult{canonical: &c}, nil
}

func (o *BatchOutcome) add(res recordResult) {
	o.total++
	if res.rejected != nil {
		o.rejected = append(o.rejected, *res.rejected)
		return
	}
	o.accepted = append(o.accepted, *res.canonical)
}

// Accumulate runs every record through the schema and returns the outcome.
// A parse error or normalization invariant violation aborts the file and no
// outcome is returned.
func Accumulate(s *Schema, records iter.Seq2[RawRecord, error]) (*BatchOutcome, error) {
	acc := NewAccumulator(s)
	for r, err := range records {
		if err != nil {
			return nil, err
		}
		if err := acc.Add(r); err != nil {
			return nil, err
		}
	}
	return acc.Finalize(), nil
}

// AccumulateParallel is like Accumulate but validates and normalizes on up
// to workers goroutines. Results are merged in input order, so the outcome
// is identical to Accumulate's. Cancellation discards all partial work.
func AccumulateParallel(ctx context.Context, s *Schema, records iter.Seq2[RawRecord, error], workers int) (*BatchOutcome, error) {
	if workers <= 1 {
		return Accumulate(s, records)
	}

	var raws []RawRecord
	for r, err := range records {
		if err != nil {
			return nil, err
		}
		raws = append(raws, r)
	}

	results := make([]recordResult, len(raws))
	chunk := (len(raws) + workers - 1) / workers
	errs := make([]error, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w, start := 0, 0; start < len(raws); w, start = w+1, start+chunk {
		end := min(start+chunk, len(raws))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%256 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				res, err := process(s, raws[i])
				if err != nil {
					errs[w] = err
					return err
				}
				results[i] = res
			}
			return nil
		})
	}
	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if waitErr != nil {
		// Earliest chunk's failure wins.
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return nil, waitErr
	}

	out := &BatchOutcome{}
	for _, res := range results {
		out.add(res)
	}
	return out, nil
}
