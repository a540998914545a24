package loader

// errors.go classifies processing failures.
//
// Every failure gets a short code used as the metrics result label and in
// the summary log line, and a Retryable flag the triggers use to decide
// between redelivery and acknowledging a message that can never succeed.
//
// # File errors (FILE001-FILE099), never retried
//
//	FILE001 - The file is not well-formed CSV (bad quoting, empty, bad header)
//	FILE002 - The object exceeds UPLOAD_MAX_FILE_SIZE
//	FILE003 - No schema matches the message or object key
//	FILE004 - The reference lacks a bucket or key
//
// # Configuration errors (CFG001-CFG099), never retried
//
//	CFG001 - A record passed validation but failed to normalize
//
// # Source errors (SRC001-SRC099)
//
//	SRC001 - The bucket or object does not exist
//	SRC002 - The object could not be fetched (retried)
//
// # Database errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB002 - Unique constraint violation
//	DB003 - Foreign key violation
//	DB004 - Connection refused (retried)
//	DB005 - Connection reset (retried)
//	DB006 - Timeout (retried)
//	DB007 - Deadlock (retried)
//	DB008 - Missing table or column
//	DB099 - Any other database error (retried)
//
// # Processing errors (UPL001-UPL099), retried
//
//	UPL001 - Processing was cancelled
//	UPL002 - Too many files in progress
//	UPL003 - Processing timed out
//
// ERR000 is the fallback for anything else and is retried.

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/objstore"
)

var (
	// ErrNoSchema is returned when no schema applies to a file.
	ErrNoSchema = errors.New("no schema")

	// ErrInvalidRef is returned for a reference without bucket or key.
	ErrInvalidRef = errors.New("file reference needs bucket and key")

	errFetch = errors.New("fetch failed")
	errLoad  = errors.New("load failed")
)

// Failure describes a classified error.
type Failure struct {
	Code      string
	Message   string
	Retryable bool
}

// errorPattern maps a database error substring to a failure.
type errorPattern struct {
	pattern string
	failure Failure
}

// dbPatterns are matched case-insensitively against database errors.
// The first match wins, so specific patterns come first.
var dbPatterns = []errorPattern{
	{"duplicate key", Failure{"DB001", "A record with this key already exists", false}},
	{"duplicate entry", Failure{"DB001", "A record with this key already exists", false}},
	{"unique constraint", Failure{"DB002", "A value must be unique but already exists", false}},
	{"violates unique", Failure{"DB002", "A value must be unique but already exists", false}},
	{"foreign key constraint", Failure{"DB003", "Referenced record does not exist", false}},
	{"violates foreign key", Failure{"DB003", "Referenced record does not exist", false}},
	{"connection refused", Failure{"DB004", "Unable to connect to database", true}},
	{"connection reset", Failure{"DB005", "Database connection was interrupted", true}},
	{"timeout", Failure{"DB006", "Database operation timed out", true}},
	{"deadlock", Failure{"DB007", "Database was busy with conflicting operations", true}},
	{"does not exist", Failure{"DB008", "Target table or column is missing", false}},
	{"doesn't exist", Failure{"DB008", "Target table or column is missing", false}},
	{"unknown column", Failure{"DB008", "Target table or column is missing", false}},
}

var (
	okFailure      = Failure{Code: "ok"}
	defaultFailure = Failure{"ERR000", "An unexpected error occurred", true}
	dbDefault      = Failure{"DB099", "The database rejected the load", true}
)

// MapError classifies err. A nil error maps to code "ok".
func MapError(err error) Failure {
	switch {
	case err == nil:
		return okFailure
	case errors.Is(err, context.Canceled):
		return Failure{"UPL001", "Processing was cancelled", true}
	case errors.Is(err, ErrBusy):
		return Failure{"UPL002", "Too many files in progress", true}
	case errors.Is(err, context.DeadlineExceeded):
		return Failure{"UPL003", "Processing timed out", true}
	case core.IsMalformedInput(err):
		return Failure{"FILE001", "File is not valid CSV", false}
	case errors.Is(err, objstore.ErrTooLarge):
		return Failure{"FILE002", "File exceeds the maximum size", false}
	case errors.Is(err, ErrNoSchema):
		return Failure{"FILE003", "No schema applies to this file", false}
	case errors.Is(err, ErrInvalidRef):
		return Failure{"FILE004", "Reference lacks a bucket or key", false}
	case core.IsNormalizationInvariant(err):
		return Failure{"CFG001", "Schema accepted a value it cannot convert", false}
	case errors.Is(err, objstore.ErrNotFound):
		return Failure{"SRC001", "Object does not exist", false}
	case errors.Is(err, errFetch):
		return Failure{"SRC002", "Object could not be fetched", true}
	case errors.Is(err, errLoad):
		errStr := strings.ToLower(err.Error())
		for _, ep := range dbPatterns {
			if strings.Contains(errStr, ep.pattern) {
				return ep.failure
			}
		}
		return dbDefault
	}
	return defaultFailure
}

// Retryable reports whether processing the same file again may succeed.
func Retryable(err error) bool {
	return err != nil && MapError(err).Retryable
}
