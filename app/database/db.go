package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectSQLite:
		return DialectSQLite, nil
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

// DB is a connection pool together with the SQL dialect it speaks.
// Repositories write queries with ? placeholders and call Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect

	driverName string
	dsn        string
}

type Options struct {
	Dialect Dialect

	// SQLite
	Path string

	// PostgreSQL
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		db              *sql.DB
		driverName, dsn string
		err             error
	)

	switch opts.Dialect {
	case DialectSQLite:
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		driverName, dsn = "sqlite", opts.Path+"?_pragma=busy_timeout(5000)"
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// A single writer avoids SQLITE_BUSY between pool connections.
		db.SetMaxOpenConns(1)

	case DialectPostgres:
		driverName, dsn = "pgx", PostgresDSN(opts)
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

	default:
		return nil, fmt.Errorf("unsupported database dialect %q", opts.Dialect)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Debug("Database connection established", "dialect", string(opts.Dialect))

	return &DB{DB: db, Dialect: opts.Dialect, driverName: driverName, dsn: dsn}, nil
}

func PostgresDSN(opts Options) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(opts.User, opts.Password),
		Host:   opts.Host + ":" + opts.Port,
		Path:   "/" + opts.Name,
	}

	q := url.Values{}
	if opts.SSLMode != "" {
		q.Set("sslmode", opts.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Rebind rewrites ? placeholders into the dialect's native form.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}

	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
