package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/loader"
)

// errRejected is returned by validate --fail-on-reject.
var errRejected = errors.New("file has rejected records")

func runCommand() *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Args:  cobra.RangeArgs(1, 2),
		Use:   "run (s3://bucket/key | bucket key)",
		Short: "process one object and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			ref.Schema = schema

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := a.svc.Process(cmd.Context(), ref)
			if err != nil {
				f := loader.MapError(err)
				return fmt.Errorf("%s %s: %w", f.Code, f.Message, err)
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "the schema key; resolved from the key prefix if empty")
	return cmd
}

// parseRef accepts either an s3:// URL or a bucket and key.
func parseRef(args []string) (loader.Ref, error) {
	if len(args) == 2 {
		return loader.Ref{Bucket: args[0], Key: args[1]}, nil
	}
	rest, ok := strings.CutPrefix(args[0], "s3://")
	if !ok {
		return loader.Ref{}, fmt.Errorf("%q is not an s3:// URL", args[0])
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return loader.Ref{}, fmt.Errorf("%w: %q", loader.ErrInvalidRef, args[0])
	}
	return loader.Ref{Bucket: bucket, Key: key}, nil
}

func validateCommand() *cobra.Command {
	var schema, rejectsPath string
	var failOnReject bool

	cmd := &cobra.Command{
		Args:  cobra.ExactArgs(1),
		Use:   "validate <file>",
		Short: "validate a local file without loading it",
		Long: `Validate runs a local file through the same pipeline as run, using the
PIPELINE_* settings, and prints the counts. No database or object store is
needed. Use "-" to read standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pc config.PipelineConfig
			if err := config.LoadInto(&pc); err != nil {
				return err
			}
			if err := pc.Validate(); err != nil {
				return err
			}
			if err := registerRules(pc.RulesDir); err != nil {
				return err
			}

			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			svc := loader.NewService(nil, nil, nil, pipelineOptions(pc))
			ref := loader.Ref{Key: filepath.ToSlash(args[0]), Schema: schema}
			sum, outcome, err := svc.Check(cmd.Context(), ref, data)
			if err != nil {
				return err
			}
			// Stdout carries only the report when it is sent there.
			summaryOut := cmd.OutOrStdout()
			if rejectsPath == "-" {
				summaryOut = cmd.ErrOrStderr()
			}
			if err := printJSON(summaryOut, sum); err != nil {
				return err
			}

			if rejectsPath != "" {
				report, err := loader.EncodeRejects(outcome.Rejected())
				if err != nil {
					return err
				}
				if err := writeOutput(cmd.OutOrStdout(), rejectsPath, report); err != nil {
					return err
				}
			}

			if failOnReject && sum.Counts.Rejected > 0 {
				return fmt.Errorf("%w: %d of %d", errRejected, sum.Counts.Rejected, sum.Counts.Total)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&schema, "schema", "", "the schema key; resolved from the file path if empty")
	f.StringVar(&rejectsPath, "rejects", "",
		`write rejected records as JSON lines to this file, or "-" for stdout (the summary then goes to stderr)`)
	f.BoolVar(&failOnReject, "fail-on-reject", false, "exit non-zero if any record is rejected")
	return cmd
}

func schemasCommand() *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "schemas",
		Short: "list the registered schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pc config.PipelineConfig
			if err := config.LoadInto(&pc); err != nil {
				return err
			}
			if err := registerRules(pc.RulesDir); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTABLE\tPREFIX\tFIELDS")
			for _, s := range core.Schemas() {
				info := s.Info()
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", info.Key, info.Table, info.Prefix, len(s.Fields()))
			}
			return w.Flush()
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
