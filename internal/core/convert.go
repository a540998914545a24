package core

// convert.go provides the type coercions shared by validation and normalization.
//
// These functions handle the messy reality of exported CSV data:
//   - Multiple date formats (US, ISO, long form)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Spreadsheet formula prefixes (="value")
//
// The built-in patterns are defined in terms of these functions, so a value
// accepted by a built-in pattern always coerces.

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	integerRegex = regexp.MustCompile(`^[+-]?\d+$`)
	decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// Date layouts with four-digit years only. Two-digit years would need a
// pivot relative to the current date, which makes coercion time-dependent.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "01.02.2006",
	"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
	"20060102",
	time.RFC3339,
}

var (
	errNotInteger = errors.New("not an integer")
	errNotDecimal = errors.New("not a decimal number")
	errNotDate    = errors.New("unrecognized date format")
	errNotBool    = errors.New("must be yes/no, true/false, or 1/0")
	errNotAllowed = errors.New("not an allowed value")
)

// CleanCell removes common CSV artifacts from a cell value:
//   - Trims whitespace
//   - Removes spreadsheet formula prefix (="...")
//   - Removes one pair of matching surrounding quotes
//   - Removes a leading apostrophe (Excel text prefix)
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	switch {
	case len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]:
		s = s[1 : len(s)-1]
	case strings.HasPrefix(s, "'"):
		// Excel text prefix
		s = s[1:]
	}

	return strings.TrimSpace(s)
}

// cleanNumber strips currency symbols and thousands separators and converts
// accounting negatives "(123.45)" to "-123.45".
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}
	return s
}

// ParseInteger converts a cell to int64.
func ParseInteger(s string) (int64, error) {
	s = cleanNumber(s)
	if !integerRegex.MatchString(s) {
		return 0, errNotInteger
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotInteger, err)
	}
	return n, nil
}

// ParseDecimal converts a cell to an exact decimal.
// Scientific notation is not accepted.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = cleanNumber(s)
	if !decimalRegex.MatchString(s) {
		return decimal.Zero, errNotDecimal
	}

	sign := ""
	switch s[0] {
	case '-':
		sign, s = "-", s[1:]
	case '+':
		s = s[1:]
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errNotDecimal, err)
	}
	return d, nil
}

// ParseDate converts a cell to a UTC date at midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errNotDate
}

// ParseBool converts a cell to a bool.
// Accepts true/false, yes/no, t/f, y/n, 1/0.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, errNotBool
	}
}

// Coerce converts a cleaned, non-empty cell to the Go value for a field type.
// Text and enum values are returned unchanged.
func Coerce(t FieldType, s string) (any, error) {
	switch t {
	case FieldInteger:
		return ParseInteger(s)
	case FieldDecimal:
		return ParseDecimal(s)
	case FieldDate:
		return ParseDate(s)
	case FieldBool:
		return ParseBool(s)
	default:
		return s, nil
	}
}
