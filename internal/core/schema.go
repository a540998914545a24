package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Schema is a compiled, immutable rule set for one kind of file.
// It is safe for concurrent use.
type Schema struct {
	info   SchemaInfo
	fields []compiledField
	byName map[string]int // lowercased field name -> position in fields
	rules  []compiledRule
}

type compiledField struct {
	spec       FieldSpec
	matchers   []Matcher
	allowed    map[string]string // lowercased value -> configured spelling
	allowedMsg string            // "[a, b, c]"
	def        any
	hasDefault bool
	transforms []Transform
}

type compiledRule struct {
	rule   CrossFieldRule
	fields []int
}

// CompileSchema checks a rule set for consistency and compiles it.
//
// A non-text field always gets its type's built-in pattern; a regular
// expression on it is checked in addition. An explicit built-in pattern must
// be able to produce the field's type, and defaults must coerce. All problems are reported together.
func CompileSchema(info SchemaInfo, specs []FieldSpec, rules []CrossFieldRule) (*Schema, error) {
	s := &Schema{
		info:   info,
		byName: make(map[string]int, len(specs)),
	}

	var errs []error
	if strings.TrimSpace(info.Key) == "" {
		errs = append(errs, errors.New("schema key is required"))
	}
	if len(specs) == 0 {
		errs = append(errs, errors.New("schema declares no fields"))
	}

	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			errs = append(errs, errors.New("field name is required"))
			continue
		}
		key := strings.ToLower(spec.Name)
		if _, dup := s.byName[key]; dup {
			errs = append(errs, fmt.Errorf("field %q declared twice", spec.Name))
			continue
		}

		cf, err := compileField(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.byName[key] = len(s.fields)
		s.fields = append(s.fields, cf)
	}

	for _, rule := range rules {
		cr, err := s.compileRule(rule)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.rules = append(s.rules, cr)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("schema %q: %w", info.Key, errors.Join(errs...))
	}
	if s.info.Table == "" {
		s.info.Table = ToColumnName(info.Key)
	}
	return s, nil
}

// MustCompileSchema is like CompileSchema but panics on error.
// Used for the compiled-in schemas.
func MustCompileSchema(info SchemaInfo, specs []FieldSpec, rules []CrossFieldRule) *Schema {
	s, err := CompileSchema(info, specs, rules)
	if err != nil {
		panic(err)
	}
	return s
}

func compileField(spec FieldSpec) (compiledField, error) {
	cf := compiledField{spec: spec}

	if _, ok := fieldTypeNames[spec.Type]; !ok {
		return cf, fmt.Errorf("field %q: unknown type %v", spec.Name, spec.Type)
	}

	matchers, err := resolvePattern(spec)
	if err != nil {
		return cf, err
	}
	cf.matchers = matchers

	if spec.Type == FieldEnum && len(spec.AllowedValues) == 0 {
		return cf, fmt.Errorf("field %q: enum requires allowed values", spec.Name)
	}
	if len(spec.AllowedValues) > 0 {
		cf.allowed = make(map[string]string, len(spec.AllowedValues))
		for _, v := range spec.AllowedValues {
			cf.allowed[strings.ToLower(strings.TrimSpace(v))] = strings.TrimSpace(v)
		}
		cf.allowedMsg = "[" + strings.Join(spec.AllowedValues, ", ") + "]"
	}

	for _, name := range spec.Transforms {
		if spec.Type != FieldText {
			return cf, fmt.Errorf("field %q: transforms apply to text fields only", spec.Name)
		}
		fn, ok := lookupTransform(name)
		if !ok {
			return cf, fmt.Errorf("field %q: unknown transform %q", spec.Name, name)
		}
		cf.transforms = append(cf.transforms, fn)
	}

	if d := CleanCell(spec.Default); d != "" {
		if spec.Required {
			return cf, fmt.Errorf("field %q: required fields cannot have a default", spec.Name)
		}
		if msgs := cf.check(d); len(msgs) > 0 {
			return cf, fmt.Errorf("field %q: default %q is invalid: %s", spec.Name, spec.Default, strings.Join(msgs, "; "))
		}
		v, err := cf.coerce(d)
		if err != nil {
			return cf, fmt.Errorf("field %q: default %q is not a valid %s: %w", spec.Name, spec.Default, spec.Type, err)
		}
		cf.def, cf.hasDefault = v, true
	}

	return cf, nil
}

// comparisonKinds order two values of the same type.
var comparisonKinds = map[CrossFieldKind]bool{
	CrossNotBefore: true,
	CrossNotAfter:  true,
	CrossEqual:     true,
}

func (s *Schema) compileRule(rule CrossFieldRule) (compiledRule, error) {
	cr := compiledRule{rule: rule}
	if rule.Name == "" {
		rule.Name = string(rule.Kind)
		cr.rule.Name = rule.Name
	}

	for _, name := range rule.Fields {
		i, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return cr, fmt.Errorf("rule %q: unknown field %q", rule.Name, name)
		}
		cr.fields = append(cr.fields, i)
	}

	switch {
	case comparisonKinds[rule.Kind]:
		if len(cr.fields) != 2 {
			return cr, fmt.Errorf("rule %q: %s compares exactly two fields", rule.Name, rule.Kind)
		}
		a, b := s.fields[cr.fields[0]].spec.Type, s.fields[cr.fields[1]].spec.Type
		if a != b {
			return cr, fmt.Errorf("rule %q: cannot compare %s with %s", rule.Name, a, b)
		}
		if a == FieldBool && rule.Kind != CrossEqual {
			return cr, fmt.Errorf("rule %q: boolean fields support equal only", rule.Name)
		}
	case rule.Kind == CrossRequires:
		if len(cr.fields) < 2 {
			return cr, fmt.Errorf("rule %q: requires needs a field and at least one dependency", rule.Name)
		}
	case rule.Kind == CrossAnyOf:
		if len(cr.fields) < 1 {
			return cr, fmt.Errorf("rule %q: any_of needs at least one field", rule.Name)
		}
	default:
		return cr, fmt.Errorf("rule %q: unknown kind %q", rule.Name, rule.Kind)
	}
	return cr, nil
}

// Info returns the schema's descriptive information.
func (s *Schema) Info() SchemaInfo {
	return s.info
}

// Fields returns the declared field specs in declaration order.
func (s *Schema) Fields() []FieldSpec {
	specs := make([]FieldSpec, len(s.fields))
	for i, f := range s.fields {
		specs[i] = f.spec
	}
	return specs
}

// FieldNames returns the declared field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.spec.Name
	}
	return names
}

// Columns returns the database column names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.spec.Column()
	}
	return cols
}

// Rules returns the cross-field rules in declaration order.
func (s *Schema) Rules() []CrossFieldRule {
	rules := make([]CrossFieldRule, len(s.rules))
	for i, r := range s.rules {
		rules[i] = r.rule
		rules[i].Fields = slices.Clone(r.rule.Fields)
	}
	return rules
}

// MissingColumns returns the declared fields absent from a header.
// Missing optional columns are filled with defaults; missing required
// columns reject every row.
func (s *Schema) MissingColumns(h *Header) (required, optional []string) {
	for _, f := range s.fields {
		if _, ok := h.Index(f.spec.Name); ok {
			continue
		}
		if f.spec.Required {
			required = append(required, f.spec.Name)
		} else {
			optional = append(optional, f.spec.Name)
		}
	}
	return required, optional
}
