// Package provenance is the durable log of what a stage did: lifecycle
// events and one metrics row per processed chunk.
//
// The Logger connects lazily on the first statement and is disconnected by
// the runner after every chunk, so no connection outlives a unit of work.
package provenance

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/db"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

// Opener dials the backend described by cfg.
type Opener func(cfg am.DatabaseConfig, logger *zap.SugaredLogger) (*sql.DB, db.Dialect, error)

// Logger executes statements against the provenance store.
// A Logger is owned by one runner and is not safe for concurrent use.
type Logger struct {
	cfg      am.DatabaseConfig
	open     Opener
	logger   *zap.SugaredLogger
	traceSQL bool

	conn     *sql.DB
	dialect  db.Dialect
	migrated bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithLogger sets the logger used for connection and migration messages.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(l *Logger) { l.logger = logger }
}

// WithTraceSQL logs every statement at debug level.
func WithTraceSQL(on bool) Option {
	return func(l *Logger) { l.traceSQL = on }
}

// WithOpener replaces db.Open, mainly for tests.
func WithOpener(open Opener) Option {
	return func(l *Logger) { l.open = open }
}

// New returns a Logger for cfg. No connection is opened.
func New(cfg am.DatabaseConfig, opts ...Option) *Logger {
	l := &Logger{cfg: cfg, open: db.Open}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connected reports whether a connection is currently held.
func (l *Logger) Connected() bool {
	return l.conn != nil
}

func (l *Logger) connect() error {
	if l.conn != nil {
		return nil
	}
	conn, dialect, err := l.open(l.cfg, l.logger)
	if err != nil {
		return errors.Wrapf(err, "connect to %s provenance store", l.cfg.Backend)
	}
	if l.cfg.Migrate && !l.migrated {
		if err := db.Migrate(conn, dialect, l.logger); err != nil {
			conn.Close()
			return errors.Wrap(err, "failed to run migrations")
		}
		l.migrated = true
	}
	l.conn = conn
	l.dialect = dialect
	return nil
}

// Execute runs stmt inside a transaction and commits it. Placeholders are
// written as "?" and rebound for the backend.
//
// A statement that yields no result set (an INSERT, say) returns nil, nil.
// Every other failure is returned.
func (l *Logger) Execute(ctx context.Context, stmt string, args ...any) (*tabular.Result, error) {
	if err := l.connect(); err != nil {
		return nil, err
	}

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}

	stmt = l.dialect.Rebind(stmt)
	if l.traceSQL && l.logger != nil {
		l.logger.Debugw("Execute", "sql", strings.Join(strings.Fields(stmt), " "), "args", len(args))
	}

	result, err := query(ctx, tx, stmt, args...)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return result, nil
}

func query(ctx context.Context, tx *sql.Tx, stmt string, args ...any) (*tabular.Result, error) {
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "execute statement")
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	result := tabular.New(fields, nil)
	// Drive the cursor even without columns; some drivers only step the
	// statement on Next.
	for rows.Next() {
		values := make([]any, len(fields))
		dest := make([]any, len(fields))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Append(values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}

	if len(fields) == 0 {
		return nil, nil
	}
	return result, nil
}

// Disconnect closes and discards the connection. It is a no-op when not
// connected.
func (l *Logger) Disconnect() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	if err != nil && !db.IsDatabaseClosed(err) {
		return errors.Wrap(err, "close provenance connection")
	}
	return nil
}
