// Package sink writes accepted records to the target database.
//
// A file is loaded in a single transaction together with a row in
// csvload_loads, so a failed load leaves neither data nor bookkeeping behind.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvload/internal/core"
)

// LoadsTable records one row per loaded file.
const LoadsTable = "csvload_loads"

// ErrUnknownDriver is returned by Open for an unsupported DATABASE_DRIVER.
var ErrUnknownDriver = errors.New("unknown database driver")

// Batch is the accepted output of one file.
type Batch struct {
	LoadID   uuid.UUID
	Schema   *core.Schema
	Source   string
	Records  []core.CanonicalRecord
	Rejected int
}

// Sink loads batches into a database.
type Sink interface {
	// Load inserts every record in b and returns the number of rows written.
	// Either all rows are written or none.
	Load(ctx context.Context, b Batch) (int64, error)

	// EnsureTable creates the schema's target table if it does not exist.
	EnsureTable(ctx context.Context, s *core.Schema) error

	Ping(ctx context.Context) error
	Close() error
}

// rowValues returns the record values in column order, converted for the
// driver by conv.
func rowValues(fields []string, c core.CanonicalRecord, conv func(any) any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = conv(c.Values[f])
	}
	return out
}

func validateBatch(b Batch) error {
	if b.Schema == nil {
		return errors.New("batch has no schema")
	}
	if b.LoadID == uuid.Nil {
		return errors.New("batch has no load id")
	}
	return nil
}

func loadError(table string, err error) error {
	return fmt.Errorf("failed to load into %s: %w", table, err)
}
