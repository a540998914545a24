// Package loader runs one object through fetch, validation, normalization
// and the database sink.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/logging"
	"github.com/JonMunkholm/csvload/internal/metrics"
	"github.com/JonMunkholm/csvload/internal/sink"
)

// Ref names one object to load. Schema is optional.
type Ref struct {
	Bucket string `json:"bucket"`
	Key    string `json:"file"`
	Schema string `json:"schema,omitempty"`
}

func (r Ref) String() string {
	return "s3://" + r.Bucket + "/" + r.Key
}

// Store reads source objects and writes reject reports.
type Store interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Sink receives the accepted records of one file.
type Sink interface {
	Load(ctx context.Context, b sink.Batch) (int64, error)
}

// Options tunes the pipeline.
type Options struct {
	Parser        core.Parser
	Decode        core.DecodeOptions
	Workers       int
	DefaultSchema string
	// RejectsPrefix is where reject reports go; empty disables them.
	RejectsPrefix string
	// Timeout bounds one file; zero means no limit.
	Timeout time.Duration
}

// Summary is the result of processing one file.
type Summary struct {
	LoadID         string      `json:"load_id"`
	Bucket         string      `json:"bucket"`
	Key            string      `json:"file"`
	Schema         string      `json:"schema"`
	Table          string      `json:"table"`
	Counts         core.Counts `json:"counts"`
	Loaded         int64       `json:"loaded"`
	MissingColumns []string    `json:"missing_columns,omitempty"`
	RejectsKey     string      `json:"rejects_key,omitempty"`
	DurationMS     int64       `json:"duration_ms"`
}

// Service processes file references.
type Service struct {
	store   Store
	sink    Sink
	limiter *Limiter
	opts    Options
}

// NewService returns a Service. A nil limiter imposes no concurrency limit.
func NewService(store Store, snk Sink, limiter *Limiter, opts Options) *Service {
	return &Service{store: store, sink: snk, limiter: limiter, opts: opts}
}

// Limiter returns the service's file limiter, which may be nil.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// Process fetches, validates and loads one object. The accepted records are
// written in one transaction; rejected records go to the reject report.
// Nothing reaches the sink if ctx is cancelled before the load starts.
func (s *Service) Process(ctx context.Context, ref Ref) (sum *Summary, err error) {
	if ref.Bucket == "" || ref.Key == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRef, ref.String())
	}

	loadID := uuid.New()
	ctx = logging.WithLoad(ctx, logging.Load{ID: loadID.String(), Bucket: ref.Bucket, Key: ref.Key})
	log := logging.FromContext(ctx)
	start := time.Now()

	schemaLabel := "unknown"
	defer func() {
		f := MapError(err)
		metrics.Files.WithLabelValues(schemaLabel, f.Code).Inc()
		metrics.FileDuration.WithLabelValues(schemaLabel).Observe(time.Since(start).Seconds())
		if err != nil {
			log.Error("file failed",
				"schema", schemaLabel,
				"code", f.Code,
				"retryable", f.Retryable,
				"error", err,
			)
		}
	}()

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	schema, err := s.resolveSchema(ref)
	if err != nil {
		return nil, err
	}
	info := schema.Info()
	schemaLabel = info.Key

	data, err := s.store.Fetch(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFetch, err)
	}
	metrics.FileBytes.Observe(float64(len(data)))

	outcome, missing, err := s.validate(ctx, schema, data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded, err := s.sink.Load(ctx, sink.Batch{
		LoadID:   loadID,
		Schema:   schema,
		Source:   ref.String(),
		Records:  outcome.Accepted(),
		Rejected: outcome.RejectedCount(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLoad, err)
	}

	metrics.Records.WithLabelValues(info.Key, "accepted").Add(float64(outcome.AcceptedCount()))
	metrics.Records.WithLabelValues(info.Key, "rejected").Add(float64(outcome.RejectedCount()))

	sum = &Summary{
		LoadID:         loadID.String(),
		Bucket:         ref.Bucket,
		Key:            ref.Key,
		Schema:         info.Key,
		Table:          info.Table,
		Counts:         outcome.Counts(),
		Loaded:         loaded,
		MissingColumns: missing,
	}

	// The load is committed; a failed report must not trigger a reload.
	if key, err := s.writeRejects(ctx, ref, outcome); err != nil {
		log.Warn("failed to write reject report", "error", err)
	} else {
		sum.RejectsKey = key
	}

	sum.DurationMS = time.Since(start).Milliseconds()
	log.Info("file processed",
		"schema", info.Key,
		"table", info.Table,
		"total", sum.Counts.Total,
		"accepted", sum.Counts.Accepted,
		"rejected", sum.Counts.Rejected,
		"loaded", loaded,
		"rejects_key", sum.RejectsKey,
		"duration_ms", sum.DurationMS,
	)
	return sum, nil
}

// Check validates data as the object named by ref without fetching or
// loading anything. The ref only needs a key when it names a schema.
func (s *Service) Check(ctx context.Context, ref Ref, data []byte) (*Summary, *core.BatchOutcome, error) {
	start := time.Now()
	schema, err := s.resolveSchema(ref)
	if err != nil {
		return nil, nil, err
	}
	outcome, missing, err := s.validate(ctx, schema, data)
	if err != nil {
		return nil, nil, err
	}
	info := schema.Info()
	return &Summary{
		Bucket:         ref.Bucket,
		Key:            ref.Key,
		Schema:         info.Key,
		Table:          info.Table,
		Counts:         outcome.Counts(),
		MissingColumns: missing,
		DurationMS:     time.Since(start).Milliseconds(),
	}, outcome, nil
}

// validate decodes, parses and accumulates data. It returns the declared
// columns missing from the header.
func (s *Service) validate(ctx context.Context, schema *core.Schema, data []byte) (*core.BatchOutcome, []string, error) {
	log := logging.FromContext(ctx)

	content, err := core.DecodeText(data, s.opts.Decode)
	if err != nil {
		return nil, nil, err
	}
	header, records, err := s.opts.Parser.Parse(content)
	if err != nil {
		return nil, nil, err
	}

	required, optional := schema.MissingColumns(header)
	if len(required) > 0 || len(optional) > 0 {
		log.Warn("declared columns missing from header",
			"required", required,
			"optional", optional,
		)
	}
	missing := append(required, optional...)

	outcome, err := core.AccumulateParallel(ctx, schema, records, s.opts.Workers)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range outcome.Rejected() {
		log.Debug("record rejected", "row", r.Raw.Row, "line", r.Raw.Line, "errors", []string(r.Errors))
	}
	return outcome, missing, nil
}

// resolveSchema picks the schema named by the reference, else the one whose
// prefix matches the key, else the configured default.
func (s *Service) resolveSchema(ref Ref) (*core.Schema, error) {
	if ref.Schema != "" {
		if schema, ok := core.LookupSchema(ref.Schema); ok {
			return schema, nil
		}
		return nil, fmt.Errorf("%w named %q", ErrNoSchema, ref.Schema)
	}
	if schema, ok := core.SchemaForKey(ref.Key); ok {
		return schema, nil
	}
	if s.opts.DefaultSchema != "" {
		if schema, ok := core.LookupSchema(s.opts.DefaultSchema); ok {
			return schema, nil
		}
		return nil, fmt.Errorf("%w named %q", ErrNoSchema, s.opts.DefaultSchema)
	}
	return nil, fmt.Errorf("%w for %s", ErrNoSchema, ref)
}
