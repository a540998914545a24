package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/metrics"
)

// Open creates the sink selected by cfg.Driver and waits up to
// cfg.ConnectTimeout for the database to answer a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, batchSize int) (Sink, error) {
	var (
		s   Sink
		err error
	)
	switch config.NormalizeDriver(cfg.Driver) {
	case config.DriverPostgres:
		s, err = NewPostgres(ctx, cfg)
	case config.DriverMySQL:
		s, err = NewMySQL(cfg, batchSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := pingWithRetry(ctx, s, cfg.ConnectTimeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func pingWithRetry(ctx context.Context, s Sink, maxElapsed time.Duration) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxElapsedTime = maxElapsed

	notify := func(err error, delay time.Duration) {
		metrics.RetryCount.WithLabelValues("db_ping").Inc()
		slog.Warn("database not ready; retrying", "error", err, "delay", delay)
	}
	if err := backoff.RetryNotify(func() error {
		return s.Ping(ctx)
	}, backoff.WithContext(expBackoff, ctx), notify); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
