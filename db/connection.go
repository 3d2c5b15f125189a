// Package db opens the provenance database for one of the supported
// backends and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/sym"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database
const SQLiteBusyTimeoutMS = 5000

// Open opens the database named by cfg.Backend. An unknown backend returns
// an error wrapping errors.ErrUnsupportedBackend before anything is dialed.
// If log is provided, logs database operations; otherwise operates silently.
func Open(cfg am.DatabaseConfig, log *zap.SugaredLogger) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Backend)
	if err != nil {
		return nil, "", err
	}

	switch dialect {
	case SQLite:
		conn, err := OpenSQLite(cfg.Path, log)
		return conn, dialect, err
	default:
		conn, err := OpenPostgres(cfg, log)
		return conn, dialect, err
	}
}

// OpenWithMigrations opens the database and applies pending migrations.
func OpenWithMigrations(cfg am.DatabaseConfig, log *zap.SugaredLogger) (*sql.DB, Dialect, error) {
	conn, dialect, err := Open(cfg, log)
	if err != nil {
		return nil, "", err
	}
	if err := Migrate(conn, dialect, log); err != nil {
		conn.Close()
		return nil, "", errors.Wrap(err, "failed to run migrations")
	}
	return conn, dialect, nil
}

// OpenSQLite opens a SQLite database at path with WAL, foreign keys and a
// busy timeout.
func OpenSQLite(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	if log != nil {
		log.Debugw("Opening database", logger.FieldBackend, am.BackendSQLite, logger.FieldPath, path, "symbol", sym.DB)
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Pragmas like busy_timeout are per connection
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", SQLiteBusyTimeoutMS),
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", p)
		}
	}

	if log != nil {
		log.Debugw("Database opened", logger.FieldBackend, am.BackendSQLite, logger.FieldPath, path, "wal_mode", true)
	}
	return conn, nil
}

// OpenPostgres opens a PostgreSQL connection through the pgx stdlib driver
// and pings it, so a bad host or credentials fail here rather than on the
// first statement.
func OpenPostgres(cfg am.DatabaseConfig, log *zap.SugaredLogger) (*sql.DB, error) {
	if log != nil {
		log.Debugw("Opening database", logger.FieldBackend, am.BackendPostgres, logger.FieldHost, cfg.Host, "symbol", sym.DB)
	}
	conn, err := sql.Open("pgx", PostgresDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// One connection per unit of work
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s:%d", cfg.Host, cfg.Port)
	}

	if log != nil {
		log.Debugw("Database opened", logger.FieldBackend, am.BackendPostgres, logger.FieldHost, cfg.Host, "name", cfg.Name)
	}
	return conn, nil
}

// PostgresDSN builds a postgres:// URL from cfg, escaping credentials.
func PostgresDSN(cfg am.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{cfg.SSLMode}}.Encode()
	}
	return u.String()
}
