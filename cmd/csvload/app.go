package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/core"
	"github.com/JonMunkholm/csvload/internal/loader"
	"github.com/JonMunkholm/csvload/internal/migrations"
	"github.com/JonMunkholm/csvload/internal/objstore"
	"github.com/JonMunkholm/csvload/internal/rules"
	"github.com/JonMunkholm/csvload/internal/sink"
)

// app holds the dependencies shared by the commands that process files.
type app struct {
	cfg  *config.Config
	svc  *loader.Service
	sink sink.Sink
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("configuration loaded",
		"driver", cfg.Database.Driver,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"pipeline_workers", cfg.Pipeline.Workers,
	)
	slog.Debug("configuration", "config", cfg.String())

	if err := registerRules(cfg.Pipeline.RulesDir); err != nil {
		return nil, err
	}

	store, err := objstore.New(cfg.Storage, cfg.Upload.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	if cfg.Database.CreateTables {
		if err := migrations.Up(cfg.Database.Driver, cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	snk, err := sink.Open(ctx, cfg.Database, cfg.Pipeline.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database", "driver", cfg.Database.Driver)

	if cfg.Database.CreateTables {
		for _, s := range core.Schemas() {
			if err := snk.EnsureTable(ctx, s); err != nil {
				_ = snk.Close()
				return nil, fmt.Errorf("failed to create table for schema %s: %w", s.Info().Key, err)
			}
		}
	}

	opts := pipelineOptions(cfg.Pipeline)
	opts.RejectsPrefix = cfg.Storage.RejectsPrefix
	opts.Timeout = cfg.Upload.Timeout

	limiter := loader.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	return &app{
		cfg:  cfg,
		svc:  loader.NewService(store, snk, limiter, opts),
		sink: snk,
	}, nil
}

// close releases the database connections.
func (a *app) close() {
	if err := a.sink.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

// drain waits up to timeout for files in progress to finish.
func (a *app) drain(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status := a.svc.Limiter().Status()
	if status.Active == 0 {
		return
	}
	slog.Info("waiting for files to complete", "active", status.Active)
	if err := a.svc.Limiter().WaitForDrain(ctx); err != nil {
		slog.Warn("files did not complete in time", "error", err)
		return
	}
	slog.Info("all files completed")
}

// pipelineOptions maps the pipeline settings onto loader options.
func pipelineOptions(p config.PipelineConfig) loader.Options {
	return loader.Options{
		Parser: core.Parser{
			Comma:      p.Comma(),
			Comment:    p.CommentRune(),
			LazyQuotes: p.LazyQuotes,
		},
		Decode: core.DecodeOptions{
			Charset:    p.Encoding,
			StrictUTF8: p.StrictUTF8,
		},
		Workers:       p.Workers,
		DefaultSchema: p.DefaultSchema,
	}
}

// registerRules loads rule files from dir over the compiled-in schemas.
func registerRules(dir string) error {
	keys, err := rules.Register(dir)
	if err != nil {
		return fmt.Errorf("failed to load rule files: %w", err)
	}
	if len(keys) > 0 {
		slog.Info("rule files loaded", "dir", dir, "schemas", keys)
	}
	slog.Info("schemas registered", "count", core.SchemaCount())
	return nil
}
