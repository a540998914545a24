package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/JonMunkholm/csvload/internal/core"
)

// rejectLine is one line of a reject report.
type rejectLine struct {
	Row    int               `json:"row"`
	Line   int               `json:"line"`
	Errors []string          `json:"errors"`
	Record map[string]string `json:"record"`
}

// RejectsKey returns the report key for an object key.
func RejectsKey(prefix, key string) string {
	return path.Join(prefix, strings.TrimPrefix(key, "/")) + ".rejects.jsonl"
}

// EncodeRejects renders rejected records as JSON lines.
func EncodeRejects(rejected []core.RejectedRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rejected {
		if err := enc.Encode(rejectLine{
			Row:    r.Raw.Row,
			Line:   r.Raw.Line,
			Errors: r.Errors,
			Record: r.Raw.Map(),
		}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writeRejects stores the reject report next to the source object and
// returns its key. Nothing is written when there are no rejects or reports
// are disabled.
func (s *Service) writeRejects(ctx context.Context, ref Ref, outcome *core.BatchOutcome) (string, error) {
	if s.opts.RejectsPrefix == "" || outcome.RejectedCount() == 0 {
		return "", nil
	}
	data, err := EncodeRejects(outcome.Rejected())
	if err != nil {
		return "", err
	}
	key := RejectsKey(s.opts.RejectsPrefix, ref.Key)
	if err := s.store.Put(ctx, ref.Bucket, key, data, "application/x-ndjson"); err != nil {
		return "", err
	}
	return key, nil
}
