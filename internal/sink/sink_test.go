package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
)

func testSchema(t *testing.T) *core.Schema {
	t.Helper()
	s, err := core.CompileSchema(core.SchemaInfo{Key: "orders", Table: "sales.orders"}, []core.FieldSpec{
		{Name: "Order ID", Required: true},
		{Name: "Amount", Type: core.FieldDecimal},
		{Name: "Placed", Type: core.FieldDate, Required: true},
		{Name: "Qty", Type: core.FieldInteger},
		{Name: "Gift", Type: core.FieldBool},
		{Name: "Status", Type: core.FieldEnum, AllowedValues: []string{"open", "closed"}},
	}, nil)
	require.NoError(t, err)
	return s
}

func TestCreateTableSQL(t *testing.T) {
	s := testSchema(t)

	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "sales"."orders" (
    "order_id" TEXT NOT NULL,
    "amount" NUMERIC,
    "placed" DATE NOT NULL,
    "qty" BIGINT,
    "gift" BOOLEAN,
    "status" TEXT
)`, postgresDialect.createTableSQL(s))

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `sales`.`orders` (\n"+
		"    `order_id` TEXT NOT NULL,\n"+
		"    `amount` DECIMAL(38,10),\n"+
		"    `placed` DATE NOT NULL,\n"+
		"    `qty` BIGINT,\n"+
		"    `gift` BOOLEAN,\n"+
		"    `status` VARCHAR(255)\n"+
		")", mysqlDialect.createTableSQL(s))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a""b"`, quotePostgres(`a"b`))
	assert.Equal(t, "`a``b`", quoteMySQL("a`b"))
}

func TestInsertSQL(t *testing.T) {
	got := insertSQL(mysqlDialect, "orders", []string{"id", "amount"}, 3)
	assert.Equal(t, "INSERT INTO `orders` (`id`, `amount`) VALUES (?, ?), (?, ?), (?, ?)", got)
}

func TestChunks(t *testing.T) {
	records := make([]core.CanonicalRecord, 7)
	for i := range records {
		records[i].Row = i + 1
	}

	got := chunks(records, 3)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 3)
	assert.Len(t, got[1], 3)
	assert.Len(t, got[2], 1)
	assert.Equal(t, 7, got[2][0].Row)

	assert.Len(t, chunks(records, 7), 1)
	assert.Empty(t, chunks(nil, 3))
}

func TestRowsPerStatement(t *testing.T) {
	assert.Equal(t, 1000, rowsPerStatement(1000, 6))
	assert.Equal(t, 936, rowsPerStatement(1000, 70))
	assert.Equal(t, DefaultBatchSize, rowsPerStatement(0, 6))
	assert.Equal(t, 1, rowsPerStatement(1000, maxPlaceholders+1))

	// A wide schema at the default batch size stays under the limit.
	columns := make([]string, 70)
	for i := range columns {
		columns[i] = fmt.Sprintf("c%d", i)
	}
	records := make([]core.CanonicalRecord, 2500)
	for _, chunk := range chunks(records, rowsPerStatement(DefaultBatchSize, len(columns))) {
		n := strings.Count(insertSQL(mysqlDialect, "wide", columns, len(chunk)), "?")
		assert.LessOrEqual(t, n, maxPlaceholders)
	}
}

func TestRowValues(t *testing.T) {
	s := testSchema(t)
	placed := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	c := core.CanonicalRecord{
		Row:    1,
		Fields: s.FieldNames(),
		Values: map[string]any{
			"Order ID": "A1",
			"Amount":   decimal.RequireFromString("-12.50"),
			"Placed":   placed,
			"Qty":      int64(3),
			"Gift":     true,
			"Status":   nil,
		},
	}

	vals := rowValues(s.FieldNames(), c, pgValue)
	require.Len(t, vals, 6)
	assert.Equal(t, "A1", vals[0])
	num, ok := vals[1].(pgtype.Numeric)
	require.True(t, ok)
	assert.True(t, num.Valid)
	assert.Equal(t, int64(-1250), num.Int.Int64())
	assert.Equal(t, int32(-2), num.Exp)
	assert.Equal(t, placed, vals[2])
	assert.Nil(t, vals[5])

	vals = rowValues(s.FieldNames(), c, mysqlValue)
	assert.IsType(t, decimal.Decimal{}, vals[1])
}

func TestValidateBatch(t *testing.T) {
	s := testSchema(t)
	assert.Error(t, validateBatch(Batch{LoadID: uuid.New()}))
	assert.Error(t, validateBatch(Batch{Schema: s}))
	assert.NoError(t, validateBatch(Batch{Schema: s, LoadID: uuid.New()}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, 10)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

type pingSink struct {
	Sink
	failures int
	calls    int
}

func (p *pingSink) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestPingWithRetry(t *testing.T) {
	s := &pingSink{failures: 2}
	require.NoError(t, pingWithRetry(context.Background(), s, 10*time.Second))
	assert.Equal(t, 3, s.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pingWithRetry(ctx, &pingSink{failures: 100}, time.Second)
	assert.Error(t, err)
}
