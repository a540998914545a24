package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/loader"
	"github.com/JonMunkholm/csvload/internal/trigger"
)

// notifyResponse lists one summary per referenced file.
type notifyResponse struct {
	Files []*loader.Summary `json:"files"`
}

// handleNotify processes the files referenced by the request body
// synchronously. The body is a trigger envelope or an S3 event notification.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotifyBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "REQ001", "request body too large")
		return
	}

	refs, err := trigger.ParseRefs(body)
	if err != nil {
		code := "REQ002"
		if errors.Is(err, trigger.ErrMissingReference) {
			code = "REQ003"
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	resp := notifyResponse{Files: make([]*loader.Summary, 0, len(refs))}
	for _, ref := range refs {
		sum, err := s.proc.Process(r.Context(), ref)
		if err != nil {
			respondError(w, r, err)
			return
		}
		resp.Files = append(resp.Files, sum)
	}
	writeJSON(w, resp)
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status  string                `json:"status"`
	Schemas int                   `json:"schemas"`
	Limiter *loader.LimiterStatus `json:"limiter,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Schemas: core.SchemaCount()}
	if s.limiter != nil {
		st := s.limiter.Status()
		resp.Limiter = &st
	}
	writeJSON(w, resp)
}

// schemaField describes one declared field.
type schemaField struct {
	Name          string   `json:"name"`
	Column        string   `json:"column"`
	Type          string   `json:"type"`
	Required      bool     `json:"required"`
	Pattern       string   `json:"pattern,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	Default       string   `json:"default,omitempty"`
}

// schemaInfo describes a registered schema.
type schemaInfo struct {
	Key    string        `json:"key"`
	Label  string        `json:"label,omitempty"`
	Table  string        `json:"table"`
	Prefix string        `json:"prefix,omitempty"`
	Fields []schemaField `json:"fields,omitempty"`
	Rules  []string      `json:"rules,omitempty"`
}

func describeSchema(s *core.Schema, withFields bool) schemaInfo {
	info := s.Info()
	out := schemaInfo{Key: info.Key, Label: info.Label, Table: info.Table, Prefix: info.Prefix}
	if !withFields {
		return out
	}
	for _, f := range s.Fields() {
		out.Fields = append(out.Fields, schemaField{
			Name:          f.Name,
			Column:        f.Column(),
			Type:          f.Type.String(),
			Required:      f.Required,
			Pattern:       f.Pattern,
			AllowedValues: f.AllowedValues,
			Default:       f.Default,
		})
	}
	for _, rule := range s.Rules() {
		out.Rules = append(out.Rules, rule.Name)
	}
	return out
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := core.Schemas()
	out := make([]schemaInfo, 0, len(schemas))
	for _, sc := range schemas {
		out = append(out, describeSchema(sc, false))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "schemaKey")
	sc, ok := core.LookupSchema(key)
	if !ok {
		writeError(w, http.StatusNotFound, "FILE003", "schema not found")
		return
	}
	writeJSON(w, describeSchema(sc, true))
}
