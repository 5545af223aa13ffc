package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// TestInitDBCreatesSchema verifies InitDB creates every table the store
// queries, so fresh databases work without manual setup.
func TestInitDBCreatesSchema(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := InitDB(dbConn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	for _, table := range []string{"tasks", "submissions", "profiles", "kana_progress"} {
		var name string
		if err := dbConn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// Verdict columns on submissions must be nullable: the grader fills them
	// later, and the client inserts rows without them.
	rows, err := dbConn.Query("PRAGMA table_info(submissions)")
	if err != nil {
		t.Fatalf("pragma: %v", err)
	}
	defer rows.Close()
	nullable := map[string]bool{}
	for rows.Next() {
		var cid, notnull, pk int
		var colName, ctype string
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		nullable[colName] = notnull == 0
	}
	for _, col := range []string{"ai_feedback", "score", "passed"} {
		if !nullable[col] {
			t.Fatalf("column %s must be nullable", col)
		}
	}

	// Running migrations twice must be harmless.
	if err := InitDB(dbConn); err != nil {
		t.Fatalf("re-run InitDB: %v", err)
	}
}
