// Package testing holds helpers shared by package tests.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/db"
)

// SQLiteConfig returns a config for a fresh SQLite provenance store in the
// test's temp dir. Migrations run on first connect.
func SQLiteConfig(t *testing.T) am.DatabaseConfig {
	t.Helper()
	return am.DatabaseConfig{
		Backend: am.BackendSQLite,
		Path:    filepath.Join(t.TempDir(), "provenance.db"),
		Migrate: true,
	}
}

// CreateTestDB opens a migrated SQLite database.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) (*sql.DB, am.DatabaseConfig) {
	t.Helper()

	cfg := SQLiteConfig(t)
	conn, _, err := db.OpenWithMigrations(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return conn, cfg
}

// CountEvents returns the number of pipeline_events rows for instance.
func CountEvents(t *testing.T, conn *sql.DB, instance string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM pipeline_events WHERE instance = ?", instance).Scan(&n); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	return n
}
