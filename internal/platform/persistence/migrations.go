package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

// RunMigrations brings the ledger schema up to date with the files under
// migrationsPath and returns the schema version it ends on. A schema left
// dirty by an interrupted run is reported instead of migrated.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) (version uint, err error) {
	if migrationsPath == "" {
		return 0, errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return 0, errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL(migrationsPath), databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{logger: logger}
	defer func() {
		sourceErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(sourceErr, dbErr)
		}
	}()

	from, dirty, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}
	if dirty {
		return from, fmt.Errorf("schema is dirty at version %d, fix it manually before migrating", from)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return from, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("Database schema already up to date", "version", from)
		return from, nil
	}

	to, _, err := schemaVersion(m)
	if err != nil {
		return 0, err
	}
	logger.Info("Database migrations applied", "from_version", from, "to_version", to, "path", migrationsPath)
	return to, nil
}

// schemaVersion treats a database without a version table as version 0
func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, dirty, nil
}

// sourceURL accepts a plain directory or a URL that already names its driver
func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// migrateLogger routes migrate's progress lines to slog at debug level
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l *migrateLogger) Verbose() bool {
	return false
}
