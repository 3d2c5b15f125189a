package db

import (
	"strconv"
	"strings"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/errors"
)

// Dialect is the SQL flavour of an open connection
type Dialect string

const (
	SQLite   Dialect = am.BackendSQLite
	Postgres Dialect = am.BackendPostgres
)

// DialectFor maps a backend selector to its dialect.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case am.BackendSQLite:
		return SQLite, nil
	case am.BackendPostgres:
		return Postgres, nil
	default:
		return "", errors.NewUnsupportedBackendError(backend, am.SupportedBackends()...)
	}
}

// Rebind rewrites "?" placeholders for the dialect. SQLite keeps them;
// PostgreSQL gets $1, $2, ... Question marks inside single-quoted literals
// are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// migrationDir is the embedded directory holding this dialect's migrations
func (d Dialect) migrationDir() string {
	return string(d) + "/migrations"
}
