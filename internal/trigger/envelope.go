// Package trigger turns queue messages and notifications into loader calls.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/JonMunkholm/csvload/internal/loader"
	"github.com/JonMunkholm/csvload/internal/metrics"
)

var (
	// ErrMissingReference is returned for a message without bucket or file.
	ErrMissingReference = errors.New("message does not reference a bucket and file")

	// ErrInvalidMessage is returned for a message body that is not JSON.
	ErrInvalidMessage = errors.New("message is not valid JSON")
)

// Processor handles one file reference.
type Processor interface {
	Process(ctx context.Context, ref loader.Ref) (*loader.Summary, error)
}

// envelope accepts both the {"bucket", "file"} form and S3 event
// notifications.
type envelope struct {
	Bucket  string                 `json:"bucket"`
	File    string                 `json:"file"`
	Schema  string                 `json:"schema"`
	Records []events.S3EventRecord `json:"Records"`
}

// ParseRefs extracts the file references from a message body. An S3 event
// notification may carry several records; the plain form carries one.
func ParseRefs(body []byte) ([]loader.Ref, error) {
	var env envelope
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if len(env.Records) > 0 {
		refs := make([]loader.Ref, 0, len(env.Records))
		for _, rec := range env.Records {
			bucket := rec.S3.Bucket.Name
			key, err := url.QueryUnescape(rec.S3.Object.Key)
			if err != nil {
				return nil, fmt.Errorf("%w: bad object key %q: %v", ErrInvalidMessage, rec.S3.Object.Key, err)
			}
			if bucket == "" || key == "" {
				return nil, ErrMissingReference
			}
			refs = append(refs, loader.Ref{Bucket: bucket, Key: key, Schema: env.Schema})
		}
		return refs, nil
	}

	if env.Bucket == "" || env.File == "" {
		return nil, ErrMissingReference
	}
	return []loader.Ref{{Bucket: env.Bucket, Key: env.File, Schema: env.Schema}}, nil
}

// Result is the outcome of handling one message.
type Result string

const (
	// Processed means every referenced file loaded.
	Processed Result = "processed"
	// Skipped means the message or a file can never succeed and was dropped.
	Skipped Result = "skipped"
	// Failed means a file hit a retryable error; the message should be redelivered.
	Failed Result = "failed"
)

// Handle parses body and processes every referenced file. It does not stop at
// a permanent failure, but returns Failed as soon as a retryable one occurs.
func Handle(ctx context.Context, proc Processor, source string, body []byte) Result {
	res := handle(ctx, proc, body)
	metrics.Messages.WithLabelValues(source, string(res)).Inc()
	return res
}

func handle(ctx context.Context, proc Processor, body []byte) Result {
	refs, err := ParseRefs(body)
	if err != nil {
		slog.Error("skipping message", "error", err)
		return Skipped
	}

	res := Processed
	for _, ref := range refs {
		if _, err := proc.Process(ctx, ref); err != nil {
			if loader.Retryable(err) {
				return Failed
			}
			res = Skipped
		}
	}
	return res
}
