package core

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Header is the ordered set of field names shared by every record of one parse.
type Header struct {
	names []string
	index map[string]int // lowercased name -> position
}

// NewHeader builds a header from field names. Names are trimmed; blank or
// duplicate (case-insensitive) names are rejected.
func NewHeader(names ...string) (*Header, error) {
	h := &Header{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("header column %d is blank", i+1)
		}
		key := strings.ToLower(n)
		if prev, dup := h.index[key]; dup {
			return nil, fmt.Errorf("header column %d %q duplicates column %d", i+1, n, prev+1)
		}
		h.names[i] = n
		h.index[key] = i
	}
	return h, nil
}

// Names returns the field names in header order.
func (h *Header) Names() []string {
	return slices.Clone(h.names)
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.names)
}

// Index returns the position of a field name.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// RawRecord is one input row as a field-name to raw-text mapping.
// The zero value has no fields.
type RawRecord struct {
	Row      int // 1-based data row index (header excluded)
	Line     int // 1-based line in the source text where the row starts
	Padded   int // Trailing fields filled with "" because the row was short
	Overflow int // Fields dropped because the row was longer than the header

	header *Header
	values []string
}

// NewRawRecord maps values onto the header, padding short rows and
// truncating long ones. The values slice is copied.
func NewRawRecord(h *Header, row, line int, values []string) RawRecord {
	r := RawRecord{
		Row:    row,
		Line:   line,
		header: h,
		values: make([]string, h.Len()),
	}
	n := copy(r.values, values)
	if len(values) < h.Len() {
		r.Padded = h.Len() - n
	}
	if len(values) > h.Len() {
		r.Overflow = len(values) - h.Len()
	}
	return r
}

// Header returns the header the record was built from.
func (r RawRecord) Header() *Header {
	return r.header
}

// Get returns the raw value for a field name.
func (r RawRecord) Get(name string) (string, bool) {
	if r.header == nil {
		return "", false
	}
	i, ok := r.header.Index(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Keys returns the field names in header order.
func (r RawRecord) Keys() []string {
	if r.header == nil {
		return nil
	}
	return r.header.Names()
}

// Values returns a copy of the raw values in header order.
func (r RawRecord) Values() []string {
	return slices.Clone(r.values)
}

// Len returns the number of fields.
func (r RawRecord) Len() int {
	return len(r.values)
}

// All iterates over field name and value pairs in header order.
func (r RawRecord) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for i, v := range r.values {
			if !yield(r.header.names[i], v) {
				return
			}
		}
	}
}

// Map returns the record as a new map.
func (r RawRecord) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	maps.Insert(m, r.All())
	return m
}

// ValidationResult is the ordered list of error descriptions for one record.
// An empty result means the record is valid.
type ValidationResult []string

// Valid reports whether the result holds no errors.
func (v ValidationResult) Valid() bool {
	return len(v) == 0
}

// CanonicalRecord is a validated, type-coerced, default-filled record.
//
// Values hold string, int64, decimal.Decimal, time.Time, bool, or nil for
// an absent optional field without a default.
type CanonicalRecord struct {
	Row    int
	Fields []string
	Values map[string]any
}

// Get returns the canonical value of a field.
func (c CanonicalRecord) Get(name string) (any, bool) {
	v, ok := c.Values[name]
	return v, ok
}

// Args returns the values in field order, suitable as SQL arguments.
func (c CanonicalRecord) Args() []any {
	args := make([]any, len(c.Fields))
	for i, f := range c.Fields {
		args[i] = c.Values[f]
	}
	return args
}

// RejectedRecord pairs a raw record with the reasons it was rejected.
type RejectedRecord struct {
	Raw    RawRecord
	Errors ValidationResult
}
