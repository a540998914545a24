package web

// errors.go maps processing failures to HTTP responses.
//
// Every failure is logged with its technical detail and returned to the
// client as a code plus a short message. The status tells the caller whether
// resending the notification can help: 4xx for files that will never load,
// 5xx for transient conditions.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvload/internal/loader"
	"github.com/JonMunkholm/csvload/internal/logging"
)

// ErrorResponse is the JSON body of an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor picks the HTTP status for a classified failure.
func statusFor(f loader.Failure) int {
	switch {
	case f.Code == "UPL002":
		return http.StatusServiceUnavailable
	case f.Code == "UPL003":
		return http.StatusGatewayTimeout
	case f.Code == "SRC001":
		return http.StatusNotFound
	case f.Code == "FILE002":
		return http.StatusRequestEntityTooLarge
	case strings.HasPrefix(f.Code, "DB") && !f.Retryable:
		return http.StatusConflict
	case !f.Retryable:
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(f.Code, "DB"), strings.HasPrefix(f.Code, "SRC"):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the classified failure.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	f := loader.MapError(err)
	status := statusFor(f)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", f.Code,
		"error", err.Error(),
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSONStatus(w, status, ErrorResponse{Error: f.Message, Code: f.Code})
}

// writeError writes a JSON error that needs no classification.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSONStatus(w, status, ErrorResponse{Error: message, Code: code})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
