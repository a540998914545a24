// Package migrations applies the embedded csvload bookkeeping schema.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JonMunkholm/csvload/internal/config"

	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// Source returns the migration files for driver.
func Source(driver string) (fs.FS, error) {
	switch driver = config.NormalizeDriver(driver); driver {
	case config.DriverPostgres, config.DriverMySQL:
		return fs.Sub(files, driver)
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// MigrateURL converts a connection string from DATABASE_URL into the form
// golang-migrate expects: postgres URLs use the pgx5 scheme and MySQL DSNs
// gain a mysql:// prefix.
func MigrateURL(driver, url string) (string, error) {
	switch config.NormalizeDriver(driver) {
	case config.DriverPostgres:
		for _, scheme := range []string{"postgres://", "postgresql://"} {
			if rest, ok := strings.CutPrefix(url, scheme); ok {
				return "pgx5://" + rest, nil
			}
		}
		return "", errors.New("postgres DATABASE_URL must start with postgres://")
	case config.DriverMySQL:
		if strings.HasPrefix(url, "mysql://") {
			return url, nil
		}
		return "mysql://" + url, nil
	}
	return "", fmt.Errorf("unknown database driver %q", driver)
}

// New returns a migrator for the given driver and connection string.
// The caller must Close it.
func New(driver, url string) (*migrate.Migrate, error) {
	src, err := Source(driver)
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	dsn, err := MigrateURL(driver, url)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations. An up-to-date database is not an error.
func Up(driver, url string) error {
	m, err := New(driver, url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}
	return nil
}
