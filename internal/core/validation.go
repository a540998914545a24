package core

// validation.go checks raw records against a compiled Schema.
//
// Each declared field is checked in order: presence, then pattern, then
// allowed values. A missing required field skips the remaining checks for
// that field only. Cross-field rules run afterwards, and a rule is skipped
// when any field it references failed its own checks.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validate returns the ordered error descriptions for a record. An empty
// result means the record is accepted. The record is not modified.
func (s *Schema) Validate(r RawRecord) ValidationResult {
	var result ValidationResult

	if r.Overflow > 0 {
		result = append(result, fmt.Sprintf("row has %d fields but header declares %d", r.Len()+r.Overflow, r.Len()))
	}

	values, valid := s.cleanValues(r)
	for i, f := range s.fields {
		if values[i] == "" {
			if f.spec.Required {
				result = append(result, fmt.Sprintf("field '%s' is required but missing", f.spec.Name))
				valid[i] = false
			}
			continue
		}
		if msgs := f.check(values[i]); len(msgs) > 0 {
			result = append(result, msgs...)
			valid[i] = false
		}
	}

	for _, cr := range s.rules {
		if msg, violated := s.evalRule(cr, values, valid); violated {
			result = append(result, fmt.Sprintf("rule '%s' violated: %s", cr.rule.Name, msg))
		}
	}

	return result
}

// cleanValues returns the cleaned value of every declared field. Fields not
// in the record's header are empty.
func (s *Schema) cleanValues(r RawRecord) ([]string, []bool) {
	values := make([]string, len(s.fields))
	valid := make([]bool, len(s.fields))
	for i, f := range s.fields {
		raw, _ := r.Get(f.spec.Name)
		values[i] = CleanCell(raw)
		valid[i] = true
	}
	return values, valid
}

// check runs the pattern and allowed-value checks on a non-empty value.
func (f compiledField) check(v string) []string {
	var msgs []string
	for _, m := range f.matchers {
		if !m.Match(v) {
			msgs = append(msgs, fmt.Sprintf("field '%s' does not match %s pattern", f.spec.Name, m.Name()))
			break
		}
	}
	if f.allowed != nil {
		if _, ok := f.allowed[strings.ToLower(v)]; !ok {
			msgs = append(msgs, fmt.Sprintf("field '%s' value %q is not one of %s", f.spec.Name, v, f.allowedMsg))
		}
	}
	return msgs
}

// evalRule reports whether a cross-field rule is violated and describes how.
func (s *Schema) evalRule(cr compiledRule, values []string, valid []bool) (string, bool) {
	for _, i := range cr.fields {
		if !valid[i] {
			return "", false
		}
	}

	names := make([]string, len(cr.fields))
	for j, i := range cr.fields {
		names[j] = s.fields[i].spec.Name
	}

	desc, violated := "", false
	switch cr.rule.Kind {
	case CrossRequires:
		if values[cr.fields[0]] == "" {
			return "", false
		}
		var missing []string
		for j, i := range cr.fields[1:] {
			if values[i] == "" {
				missing = append(missing, "'"+names[j+1]+"'")
			}
		}
		if len(missing) > 0 {
			desc = fmt.Sprintf("field '%s' requires field %s", names[0], strings.Join(missing, ", "))
			violated = true
		}

	case CrossAnyOf:
		violated = true
		for _, i := range cr.fields {
			if values[i] != "" {
				violated = false
				break
			}
		}
		quoted := make([]string, len(names))
		for j, n := range names {
			quoted[j] = "'" + n + "'"
		}
		desc = fmt.Sprintf("at least one of fields %s must be present", strings.Join(quoted, ", "))

	default:
		a, b := cr.fields[0], cr.fields[1]
		if values[a] == "" || values[b] == "" {
			return "", false
		}
		cmp, ok := s.fields[a].compare(values[a], values[b])
		if !ok {
			return "", false
		}
		switch cr.rule.Kind {
		case CrossNotBefore:
			violated = cmp < 0
			desc = fmt.Sprintf("field '%s' must not be before field '%s'", names[0], names[1])
		case CrossNotAfter:
			violated = cmp > 0
			desc = fmt.Sprintf("field '%s' must not be after field '%s'", names[0], names[1])
		case CrossEqual:
			violated = cmp != 0
			desc = fmt.Sprintf("field '%s' must equal field '%s'", names[0], names[1])
		}
	}

	if violated && cr.rule.Message != "" {
		desc = cr.rule.Message
	}
	return desc, violated
}

// compare orders two cleaned values of the field's type. It returns false
// when either value cannot be coerced.
func (f compiledField) compare(a, b string) (int, bool) {
	va, errA := f.coerce(a)
	vb, errB := f.coerce(b)
	if errA != nil || errB != nil {
		return 0, false
	}

	switch x := va.(type) {
	case int64:
		y := vb.(int64)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case decimal.Decimal:
		return x.Cmp(vb.(decimal.Decimal)), true
	case time.Time:
		return x.Compare(vb.(time.Time)), true
	case bool:
		if x == vb.(bool) {
			return 0, true
		}
		return 1, true
	case string:
		return strings.Compare(strings.ToLower(x), strings.ToLower(vb.(string))), true
	}
	return 0, false
}
