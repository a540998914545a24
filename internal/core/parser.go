package core

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strings"
)

// Parser splits the text of one delimited file into a header and records.
// The zero value parses comma-separated input.
type Parser struct {
	Comma      rune // Field delimiter; ',' if zero
	Comment    rune // Lines starting with this rune are skipped; disabled if zero
	LazyQuotes bool // Tolerate bare quotes in unquoted fields
}

const utf8BOM = "\uFEFF"

// Parse reads the header and returns a lazy sequence of the remaining rows.
//
// The sequence may be ranged more than once; each pass re-reads content from
// the start and yields identical records. Short rows are padded and long rows
// truncated (see RawRecord.Padded and RawRecord.Overflow). A quoting error
// is yielded as a *MalformedInputError and ends the sequence.
func (p Parser) Parse(content string) (*Header, iter.Seq2[RawRecord, error], error) {
	content = strings.TrimPrefix(content, utf8BOM)
	if strings.TrimSpace(content) == "" {
		return nil, nil, &MalformedInputError{Reason: "input is empty"}
	}

	r := p.reader(content)
	names, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &MalformedInputError{Reason: "input has no header"}
		}
		return nil, nil, malformedFromCSV(err)
	}
	line, _ := r.FieldPos(0)

	header, err := NewHeader(names...)
	if err != nil {
		return nil, nil, &MalformedInputError{Line: line, Reason: err.Error(), Err: err}
	}

	seq := func(yield func(RawRecord, error) bool) {
		r := p.reader(content)
		if _, err := r.Read(); err != nil {
			yield(RawRecord{}, malformedFromCSV(err))
			return
		}

		for row := 1; ; row++ {
			values, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(RawRecord{}, malformedFromCSV(err))
				return
			}
			line, _ := r.FieldPos(0)
			if !yield(NewRawRecord(header, row, line, values), nil) {
				return
			}
		}
	}

	return header, seq, nil
}

func (p Parser) reader(content string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = p.LazyQuotes
	r.Comment = p.Comment
	if p.Comma != 0 {
		r.Comma = p.Comma
	}
	return r
}
