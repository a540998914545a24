package core

import (
	"fmt"
	"strings"
)

// FieldType represents the semantic type a field is coerced to.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldInteger
	FieldDecimal
	FieldBool
)

var fieldTypeNames = map[FieldType]string{
	FieldText:    "text",
	FieldEnum:    "enum",
	FieldDate:    "date",
	FieldInteger: "integer",
	FieldDecimal: "decimal",
	FieldBool:    "boolean",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType converts a configuration name to a FieldType.
// Accepts the canonical names plus a few common aliases.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "string":
		return FieldText, nil
	case "enum", "enumerated":
		return FieldEnum, nil
	case "date":
		return FieldDate, nil
	case "integer", "int":
		return FieldInteger, nil
	case "decimal", "numeric", "number":
		return FieldDecimal, nil
	case "boolean", "bool":
		return FieldBool, nil
	default:
		return FieldText, fmt.Errorf("unknown field type %q", s)
	}
}

// FieldSpec defines validation and normalization rules for a single column.
type FieldSpec struct {
	Name          string    // Column header name (matched case-insensitively)
	DBColumn      string    // Database column name (derived from Name if empty)
	Type          FieldType // Target semantic type
	Required      bool      // Value must be present and non-empty after trim
	Pattern       string    // Built-in pattern name or a regular expression
	AllowedValues []string  // Permitted values, matched case-insensitively
	Default       string    // Substituted when an optional value is absent
	Transforms    []string  // Named text transforms applied by the normalizer
}

// Column returns the database column name for the field.
func (f FieldSpec) Column() string {
	if f.DBColumn != "" {
		return f.DBColumn
	}
	return ToColumnName(f.Name)
}

// CrossFieldKind identifies a cross-field predicate.
type CrossFieldKind string

const (
	// CrossNotBefore requires Fields[0] >= Fields[1].
	CrossNotBefore CrossFieldKind = "not_before"
	// CrossNotAfter requires Fields[0] <= Fields[1].
	CrossNotAfter CrossFieldKind = "not_after"
	// CrossEqual requires Fields[0] == Fields[1].
	CrossEqual CrossFieldKind = "equal"
	// CrossRequires requires Fields[1..] to be present when Fields[0] is.
	CrossRequires CrossFieldKind = "requires"
	// CrossAnyOf requires at least one of Fields to be present.
	CrossAnyOf CrossFieldKind = "any_of"
)

// CrossFieldRule is a declarative predicate spanning several fields.
type CrossFieldRule struct {
	Name    string
	Kind    CrossFieldKind
	Fields  []string
	Message string // Optional replacement for the generated description
}

// SchemaInfo contains descriptive information about a schema.
type SchemaInfo struct {
	Key    string // Unique identifier: "contacts"
	Label  string // Display name: "Contacts"
	Table  string // Target table name
	Prefix string // Object key prefix routed to this schema, e.g. "incoming/contacts/"
}

// ToColumnName derives a SQL-friendly column name from a header name.
// "Customer ID" becomes "customer_id".
func ToColumnName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
