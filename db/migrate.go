package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/sym"
)

//go:embed sqlite/migrations/*.sql postgres/migrations/*.sql
var migrations embed.FS

// Migrations lists the embedded migration files for a dialect, in the order
// they are applied.
func Migrations(dialect Dialect) ([]string, error) {
	entries, err := migrations.ReadDir(dialect.migrationDir())
	if err != nil {
		return nil, errors.Wrapf(err, "read %s migrations", dialect)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate runs all pending migrations for the dialect. Each migration runs
// in its own transaction and is recorded in schema_migrations.
// If log is provided, logs migration progress; otherwise operates silently.
func Migrate(conn *sql.DB, dialect Dialect, log *zap.SugaredLogger) error {
	files, err := Migrations(dialect)
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		version := strings.Split(filename, "_")[0]

		// schema_migrations is created by 000, so a failed lookup is only
		// acceptable before it has run
		var exists bool
		err := conn.QueryRow(
			dialect.Rebind("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)"),
			version,
		).Scan(&exists)
		if err != nil {
			if version != "000" {
				return errors.Wrapf(err, "schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if log != nil {
				log.Debugw("Skipping migration (already applied)", "migration", filename)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(path.Join(dialect.migrationDir(), filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if log != nil {
			log.Infow("Applying migration", "migration", filename, logger.FieldBackend, string(dialect))
		}

		tx, err := conn.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}
		if _, err := tx.Exec(dialect.Rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
		applied++
	}

	if log != nil && applied > 0 {
		log.Infow("Migrations complete", "symbol", sym.DB, "applied", applied, "total_migrations", len(files))
	}
	return nil
}
