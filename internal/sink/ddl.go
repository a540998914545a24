package sink

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvload/internal/core"
)

type dialect struct {
	quote func(string) string
	types map[core.FieldType]string
}

var postgresDialect = dialect{
	quote: quotePostgres,
	types: map[core.FieldType]string{
		core.FieldText:    "TEXT",
		core.FieldEnum:    "TEXT",
		core.FieldDate:    "DATE",
		core.FieldInteger: "BIGINT",
		core.FieldDecimal: "NUMERIC",
		core.FieldBool:    "BOOLEAN",
	},
}

var mysqlDialect = dialect{
	quote: quoteMySQL,
	types: map[core.FieldType]string{
		core.FieldText:    "TEXT",
		core.FieldEnum:    "VARCHAR(255)",
		core.FieldDate:    "DATE",
		core.FieldInteger: "BIGINT",
		core.FieldDecimal: "DECIMAL(38,10)",
		core.FieldBool:    "BOOLEAN",
	},
}

// createTableSQL returns a CREATE TABLE IF NOT EXISTS statement with one
// column per schema field. Required fields are NOT NULL.
func (d dialect) createTableSQL(s *core.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.quote(s.Info().Table))
	for i, f := range s.Fields() {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", d.quote(f.Column()), d.types[f.Type])
		if f.Required {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// quotePostgres quotes each dot-separated part of a possibly
// schema-qualified name.
func quotePostgres(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func quoteMySQL(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
