package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the connection's dialect
// and returns version info. Running it against an up-to-date schema is a no-op.
//
// Migrations run on a dedicated short-lived pool: the migrate drivers pin a
// connection until they are closed, and closing them closes the pool.
func RunMigrations(db *DB) (uint, bool, error) {
	conn, err := sql.Open(db.driverName, db.dsn)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open migration connection: %w", err)
	}

	var driver database.Driver
	switch db.Dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(conn, &migratepgx.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", db.Dialect)
	}
	if err != nil {
		conn.Close()
		return 0, false, fmt.Errorf("failed to create %s migration driver: %w", db.Dialect, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+string(db.Dialect))
	if err != nil {
		driver.Close()
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.Dialect), driver)
	if err != nil {
		source.Close()
		driver.Close()
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("Failed to close migrate instance", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// Migrator adapts RunMigrations to the scrape pipeline's schema stage.
type Migrator struct {
	db *DB
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	version, dirty, err := RunMigrations(m.db)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	slog.Debug("Schema is up to date", "version", version)
	return nil
}
