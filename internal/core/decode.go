package core

// decode.go turns downloaded bytes into the text the Parser consumes.
//
// Spreadsheet exports arrive in a handful of shapes:
//
//   - UTF-8 with or without a byte order mark
//   - UTF-16 with a byte order mark (Excel "Unicode Text")
//   - Legacy single-byte code pages such as windows-1252
//
// A declared charset wins. Otherwise UTF-16 is detected by its BOM and
// everything else is treated as UTF-8, where invalid sequences are either
// replaced with U+FFFD or rejected.

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DecodeOptions controls how raw bytes are turned into text.
type DecodeOptions struct {
	Charset    string // IANA or WHATWG encoding label; empty means detect
	StrictUTF8 bool   // Reject invalid UTF-8 instead of replacing it
}

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts file bytes to UTF-8 text. A leading BOM is removed.
func DecodeText(data []byte, opts DecodeOptions) (string, error) {
	enc, err := pickEncoding(data, opts.Charset)
	if err != nil {
		return "", err
	}

	if enc != nil {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", &MalformedInputError{Reason: fmt.Sprintf("cannot decode input: %v", err), Err: err}
		}
		return strings.TrimPrefix(string(out), utf8BOM), nil
	}

	text := strings.TrimPrefix(string(data), utf8BOM)
	if utf8.ValidString(text) {
		return text, nil
	}
	if opts.StrictUTF8 {
		return "", &MalformedInputError{Line: firstInvalidLine(text), Reason: "input is not valid UTF-8"}
	}
	return strings.ToValidUTF8(text, "\uFFFD"), nil
}

// pickEncoding returns the decoder to use, or nil for UTF-8.
func pickEncoding(data []byte, charset string) (encoding.Encoding, error) {
	charset = strings.TrimSpace(charset)
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", charset, err)
		}
		if name, _ := htmlindex.Name(enc); name == "utf-8" {
			return nil, nil
		}
		return enc, nil
	}

	switch {
	case bytes.HasPrefix(data, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), nil
	case bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), nil
	}
	return nil, nil
}

// firstInvalidLine returns the 1-based line holding the first invalid byte.
func firstInvalidLine(s string) int {
	line := 1
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		i += size
	}
	return line
}
