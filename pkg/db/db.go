// Package db is the local sqlite cache: tasks and submissions mirrored from
// the backend, plus the profile and kana-progress rows the dashboard keeps
// on device.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB applies the embedded schema to the connection. Statements run one
// at a time so a failure names what broke; everything is IF NOT EXISTS, so
// re-running against an existing database is harmless.
func InitDB(db *sql.DB) error {
	for _, stmt := range strings.Split(migrationsSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
