package db

import (
	"database/sql"
	"strings"

	"github.com/teranos/pipestage/errors"
)

// IsDatabaseClosed reports whether err means the connection is already gone.
// Drivers report this as plain text, so the message is matched as well.
func IsDatabaseClosed(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, sql.ErrConnDone):
		return true
	default:
		return strings.Contains(err.Error(), "database is closed")
	}
}
