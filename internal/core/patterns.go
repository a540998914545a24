package core

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Matcher checks whether a cleaned, non-empty value conforms to a format.
type Matcher interface {
	// Name identifies the pattern in error descriptions.
	Name() string
	Match(value string) bool
}

type funcMatcher struct {
	name string
	fn   func(string) bool
}

func (m funcMatcher) Name() string { return m.name }
func (m funcMatcher) Match(value string) bool { return m.fn(value) }

type regexMatcher struct {
	src string
	re  *regexp.Regexp
}

func (m regexMatcher) Name() string { return fmt.Sprintf("%q", m.src) }
func (m regexMatcher) Match(value string) bool { return m.re.MatchString(value) }

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

// builtinPatterns are the named patterns usable in FieldSpec.Pattern.
// The numeric, decimal, date, and boolean patterns accept exactly what the
// corresponding coercion accepts.
var builtinPatterns = map[string]Matcher{
	"numeric": funcMatcher{"numeric", func(s string) bool {
		_, err := ParseInteger(s)
		return err == nil
	}},
	"decimal": funcMatcher{"decimal", func(s string) bool {
		_, err := ParseDecimal(s)
		return err == nil
	}},
	"date": funcMatcher{"date", func(s string) bool {
		_, err := ParseDate(s)
		return err == nil
	}},
	"boolean": funcMatcher{"boolean", func(s string) bool {
		_, err := ParseBool(s)
		return err == nil
	}},
	"email": funcMatcher{"email", emailRegex.MatchString},
}

// defaultPattern is the pattern implied by a field type when none is declared.
var defaultPattern = map[FieldType]string{
	FieldInteger: "numeric",
	FieldDecimal: "decimal",
	FieldDate:    "date",
	FieldBool:    "boolean",
}

// compatiblePatterns lists the built-in patterns whose accepted values
// coerce to each non-text type.
var compatiblePatterns = map[FieldType][]string{
	FieldInteger: {"numeric"},
	FieldDecimal: {"numeric", "decimal"},
	FieldDate:    {"date"},
	FieldBool:    {"boolean"},
}

// resolvePattern returns the matchers for a field in check order, or nil
// when the field has no format constraint. A regular expression on a
// non-text field runs after the type's built-in pattern, so it can only
// narrow what the coercion accepts. Regular expressions always match the
// whole value.
func resolvePattern(spec FieldSpec) ([]Matcher, error) {
	name := strings.TrimSpace(spec.Pattern)
	if name == "" {
		name = defaultPattern[spec.Type]
	}
	if name == "" {
		return nil, nil
	}

	if m, ok := builtinPatterns[strings.ToLower(name)]; ok {
		if allowed, typed := compatiblePatterns[spec.Type]; typed && !slices.Contains(allowed, m.Name()) {
			return nil, fmt.Errorf("field %q: pattern %q cannot produce a valid %s", spec.Name, m.Name(), spec.Type)
		}
		return []Matcher{m}, nil
	}

	re, err := regexp.Compile("^(?:" + name + ")$")
	if err != nil {
		return nil, fmt.Errorf("field %q: invalid pattern: %w", spec.Name, err)
	}
	custom := regexMatcher{src: name, re: re}
	if typeName, typed := defaultPattern[spec.Type]; typed {
		return []Matcher{builtinPatterns[typeName], custom}, nil
	}
	return []Matcher{custom}, nil
}
