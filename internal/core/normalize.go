package core

import (
	"strings"
)

// Normalize converts a Validate-accepted record into its canonical form.
//
// Values are cleaned, text transforms are applied, and each value is
// coerced to its field type. Absent optional values take the field default
// or nil. A coercion failure means validation and normalization disagree and
// is returned as a *NormalizationInvariantError.
func (s *Schema) Normalize(r RawRecord) (CanonicalRecord, error) {
	out := CanonicalRecord{
		Row:    r.Row,
		Fields: make([]string, len(s.fields)),
		Values: make(map[string]any, len(s.fields)),
	}

	values, _ := s.cleanValues(r)
	for i, f := range s.fields {
		name := f.spec.Name
		out.Fields[i] = name

		if values[i] == "" {
			if f.hasDefault {
				out.Values[name] = f.def
			} else {
				out.Values[name] = nil
			}
			continue
		}

		v, err := f.coerce(values[i])
		if err != nil {
			return CanonicalRecord{}, &NormalizationInvariantError{
				Row:   r.Row,
				Field: name,
				Value: values[i],
				Type:  f.spec.Type,
				Err:   err,
			}
		}
		out.Values[name] = v
	}

	return out, nil
}

// coerce converts a cleaned, non-empty value to the field's Go value.
func (f compiledField) coerce(v string) (any, error) {
	switch f.spec.Type {
	case FieldText:
		if canon, ok := f.allowed[strings.ToLower(v)]; ok {
			v = canon
		}
		for _, fn := range f.transforms {
			v = fn(v)
		}
		return v, nil
	case FieldEnum:
		canon, ok := f.allowed[strings.ToLower(v)]
		if !ok {
			return nil, errNotAllowed
		}
		return canon, nil
	default:
		return Coerce(f.spec.Type, v)
	}
}
