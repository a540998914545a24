// Package rules loads schema definitions from YAML files.
//
// A rule file describes one schema:
//
//	key: orders
//	label: Orders
//	table: orders
//	prefix: incoming/orders/
//	fields:
//	  - name: Order ID
//	    required: true
//	    pattern: '[A-Z]{2}\d{6}'
//	  - name: Amount
//	    type: decimal
//	  - name: Status
//	    type: enum
//	    allowed_values: [open, shipped, cancelled]
//	    default: open
//	rules:
//	  - name: shipped_has_date
//	    kind: requires
//	    fields: [Shipped, Ship date]
//
// A pattern is a built-in name (numeric, decimal, date, boolean, email) or a
// regular expression matched against the whole value. On typed fields a
// regular expression is checked in addition to the type's own format.
//
// Files in a rules directory override compiled-in schemas with the same key.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/csvload/internal/core"
)

// File is the YAML form of one schema.
type File struct {
	Key    string  `yaml:"key"`
	Label  string  `yaml:"label"`
	Table  string  `yaml:"table"`
	Prefix string  `yaml:"prefix"`
	Fields []Field `yaml:"fields"`
	Rules  []Rule  `yaml:"rules"`
}

// Field is the YAML form of core.FieldSpec.
type Field struct {
	Name          string   `yaml:"name"`
	Column        string   `yaml:"column"`
	Type          string   `yaml:"type"`
	Required      bool     `yaml:"required"`
	Pattern       string   `yaml:"pattern"`
	AllowedValues []string `yaml:"allowed_values"`
	Default       string   `yaml:"default"`
	Transforms    []string `yaml:"transforms"`
}

// Rule is the YAML form of core.CrossFieldRule.
type Rule struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Fields  []string `yaml:"fields"`
	Message string   `yaml:"message"`
}

// Parse decodes and compiles one rule file. Unknown keys are rejected so a
// misspelled option fails at startup instead of being ignored.
func Parse(data []byte) (*core.Schema, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("rule file is empty")
		}
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return f.Compile()
}

// Compile converts the file to a compiled schema.
func (f File) Compile() (*core.Schema, error) {
	specs := make([]core.FieldSpec, 0, len(f.Fields))
	for _, fd := range f.Fields {
		t, err := core.ParseFieldType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		specs = append(specs, core.FieldSpec{
			Name:          fd.Name,
			DBColumn:      fd.Column,
			Type:          t,
			Required:      fd.Required,
			Pattern:       fd.Pattern,
			AllowedValues: fd.AllowedValues,
			Default:       fd.Default,
			Transforms:    fd.Transforms,
		})
	}

	cross := make([]core.CrossFieldRule, 0, len(f.Rules))
	for _, r := range f.Rules {
		cross = append(cross, core.CrossFieldRule{
			Name:    r.Name,
			Kind:    core.CrossFieldKind(r.Kind),
			Fields:  r.Fields,
			Message: r.Message,
		})
	}

	info := core.SchemaInfo{Key: f.Key, Label: f.Label, Table: f.Table, Prefix: f.Prefix}
	return core.CompileSchema(info, specs, cross)
}

// LoadFile reads and compiles a single rule file.
func LoadFile(path string) (*core.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// LoadDir compiles every *.yaml and *.yml file in dir, sorted by file name.
// Two files declaring the same key are an error.
func LoadDir(dir string) ([]*core.Schema, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	var (
		schemas []*core.Schema
		errs    []error
		seen    = make(map[string]string)
	)
	for _, file := range files {
		s, err := LoadFile(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := s.Info().Key
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("%s: schema %q already defined in %s", filepath.Base(file), key, prev))
			continue
		}
		seen[key] = filepath.Base(file)
		schemas = append(schemas, s)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return schemas, nil
}

// Register loads dir and registers every schema, replacing compiled-in
// schemas with the same key. An empty dir is a no-op.
func Register(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	schemas, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(schemas))
	for _, s := range schemas {
		core.ReplaceSchema(s)
		keys = append(keys, s.Info().Key)
	}
	return keys, nil
}
