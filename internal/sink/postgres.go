package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
)

// Postgres loads batches with COPY.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Sink = (*Postgres)(nil)

// NewPostgres creates a connection pool from cfg. Connections are opened
// lazily; call Ping to verify the database is reachable.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Load implements Sink.
func (p *Postgres) Load(ctx context.Context, b Batch) (int64, error) {
	if err := validateBatch(b); err != nil {
		return 0, err
	}
	info := b.Schema.Info()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	fields := b.Schema.FieldNames()
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier(strings.Split(info.Table, ".")),
		b.Schema.Columns(),
		pgx.CopyFromSlice(len(b.Records), func(i int) ([]any, error) {
			return rowValues(fields, b.Records[i], pgValue), nil
		}),
	)
	if err != nil {
		return 0, loadError(info.Table, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO `+LoadsTable+` (id, schema_key, table_name, source, accepted, rejected)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.LoadID, info.Key, info.Table, b.Source, n, b.Rejected,
	); err != nil {
		return 0, fmt.Errorf("failed to record load: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// EnsureTable implements Sink.
func (p *Postgres) EnsureTable(ctx context.Context, s *core.Schema) error {
	if _, err := p.pool.Exec(ctx, postgresDialect.createTableSQL(s)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.Info().Table, err)
	}
	return nil
}

// Ping implements Sink.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close implements Sink.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// pgValue converts canonical values to types the binary COPY protocol
// encodes directly.
func pgValue(v any) any {
	switch v := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: v.Coefficient(), Exp: v.Exponent(), Valid: true}
	}
	return v
}
