package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/loader"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    loader.Ref
		wantErr bool
	}{
		{"url", []string{"s3://uploads/incoming/contacts/a.csv"}, loader.Ref{Bucket: "uploads", Key: "incoming/contacts/a.csv"}, false},
		{"pair", []string{"uploads", "a.csv"}, loader.Ref{Bucket: "uploads", Key: "a.csv"}, false},
		{"no scheme", []string{"uploads/a.csv"}, loader.Ref{}, true},
		{"no key", []string{"s3://uploads/"}, loader.Ref{}, true},
		{"no bucket", []string{"s3:///a.csv"}, loader.Ref{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRef(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	opts := pipelineOptions(config.PipelineConfig{
		Delimiter:     "tab",
		Comment:       "#",
		LazyQuotes:    true,
		Encoding:      "windows-1252",
		Workers:       4,
		DefaultSchema: "contacts",
	})
	assert.Equal(t, core.Parser{Comma: '\t', Comment: '#', LazyQuotes: true}, opts.Parser)
	assert.Equal(t, core.DecodeOptions{Charset: "windows-1252"}, opts.Decode)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, "contacts", opts.DefaultSchema)
	assert.Empty(t, opts.RejectsPrefix)
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PIPELINE_RULES_DIR", "")
	t.Setenv("PIPELINE_DELIMITER", "")
	t.Setenv("PIPELINE_ENCODING", "")

	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

const contactsCSV = "name,age,email\nAlice,30,alice@example.com\n,5,\nBob,x,\n"

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(contactsCSV), 0o644))
	rejects := filepath.Join(dir, "rejects.jsonl")

	out, err := execute(t, "validate", "--schema", "contacts", "--rejects", rejects, path)
	require.NoError(t, err)

	var sum loader.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "contacts", sum.Schema)
	assert.Equal(t, core.Counts{Total: 3, Accepted: 1, Rejected: 2}, sum.Counts)

	report, err := os.ReadFile(rejects)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(report)), "\n"), 2)

	_, err = execute(t, "validate", "--schema", "contacts", "--fail-on-reject", path)
	assert.ErrorIs(t, err, errRejected)

	_, err = execute(t, "validate", path)
	assert.ErrorIs(t, err, loader.ErrNoSchema)
}

func TestValidateCommand_Stdin(t *testing.T) {
	var out bytes.Buffer
	t.Setenv("PIPELINE_RULES_DIR", "")
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(contactsCSV))
	cmd.SetArgs([]string{"--env-file", "", "validate", "--schema", "contacts", "-"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"accepted": 1`)
}

func TestValidateCommand_RejectsToStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(contactsCSV), 0o644))
	t.Setenv("PIPELINE_RULES_DIR", "")
	t.Setenv("PIPELINE_DELIMITER", "")
	t.Setenv("PIPELINE_ENCODING", "")

	var stdout, stderr bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--env-file", "", "validate", "--schema", "contacts", "--rejects", "-", path})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		assert.Contains(t, rec, "errors")
	}

	var sum loader.Summary
	require.NoError(t, json.Unmarshal(stderr.Bytes(), &sum))
	assert.Equal(t, 2, sum.Counts.Rejected)
}

func TestSchemasCommand(t *testing.T) {
	out, err := execute(t, "schemas")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "contacts")
	assert.Contains(t, out, "incoming/contacts/")
}
