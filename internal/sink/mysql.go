package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
)

// DefaultBatchSize is the number of rows per INSERT when none is configured.
const DefaultBatchSize = 1000

// MySQL loads batches with multi-row INSERT statements.
type MySQL struct {
	db        *sql.DB
	batchSize int
}

var _ Sink = (*MySQL)(nil)

// NewMySQL opens a connection pool from cfg. batchSize bounds the rows per
// INSERT statement.
func NewMySQL(cfg config.DatabaseConfig, batchSize int) (*MySQL, error) {
	dsn, err := mysql.ParseDSN(strings.TrimPrefix(cfg.URL, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	dsn.ParseTime = true

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MySQL{db: db, batchSize: batchSize}, nil
}

// Load implements Sink.
func (m *MySQL) Load(ctx context.Context, b Batch) (int64, error) {
	if err := validateBatch(b); err != nil {
		return 0, err
	}
	info := b.Schema.Info()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	fields := b.Schema.FieldNames()
	columns := b.Schema.Columns()

	var total int64
	for _, chunk := range chunks(b.Records, rowsPerStatement(m.batchSize, len(columns))) {
		args := make([]any, 0, len(chunk)*len(fields))
		for _, c := range chunk {
			args = append(args, rowValues(fields, c, mysqlValue)...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(mysqlDialect, info.Table, columns, len(chunk)), args...)
		if err != nil {
			return 0, loadError(info.Table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, loadError(info.Table, err)
		}
		total += n
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+LoadsTable+" (id, schema_key, table_name, source, accepted, rejected) VALUES (?, ?, ?, ?, ?, ?)",
		b.LoadID.String(), info.Key, info.Table, b.Source, total, b.Rejected,
	); err != nil {
		return 0, fmt.Errorf("failed to record load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

// EnsureTable implements Sink.
func (m *MySQL) EnsureTable(ctx context.Context, s *core.Schema) error {
	if _, err := m.db.ExecContext(ctx, mysqlDialect.createTableSQL(s)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.Info().Table, err)
	}
	return nil
}

// Ping implements Sink.
func (m *MySQL) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close implements Sink.
func (m *MySQL) Close() error {
	return m.db.Close()
}

// insertSQL returns a multi-row INSERT with rows placeholder groups.
func insertSQL(d dialect, table string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quote(c)
	}
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.quote(table), strings.Join(quoted, ", "))
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(group)
	}
	return b.String()
}

// maxPlaceholders is the MySQL limit on placeholders in one prepared statement.
const maxPlaceholders = 65535

// rowsPerStatement caps batchSize so a multi-row INSERT over columns stays
// within maxPlaceholders.
func rowsPerStatement(batchSize, columns int) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if columns > 0 {
		batchSize = min(batchSize, maxPlaceholders/columns)
	}
	return max(batchSize, 1)
}

// chunks splits records into consecutive slices of at most size elements.
func chunks(records []core.CanonicalRecord, size int) [][]core.CanonicalRecord {
	var out [][]core.CanonicalRecord
	for len(records) > size {
		out = append(out, records[:size])
		records = records[size:]
	}
	if len(records) > 0 {
		out = append(out, records)
	}
	return out
}

// mysqlValue passes values through; decimal.Decimal and time.Time already
// implement the driver interfaces the MySQL driver accepts.
func mysqlValue(v any) any { return v }
