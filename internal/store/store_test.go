package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Create database
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	// Reopen database
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	// Verify we can query it
	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	defer s.Close()

	for _, table := range []string{"accounts", "events"} {
		var name string
		if err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name); err != nil {
			t.Errorf("table %q missing after reopen: %v", table, err)
		}
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent", "test.db")); err == nil {
		t.Error("Open() in a missing directory succeeded")
	}
}

func TestClose(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close() with no db: %v", err)
	}

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if err := s.DB().Ping(); err != nil {
		t.Errorf("DB() not usable: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close(): %v", err)
	}
	_ = s.Close() // second close must not panic
}

func TestPragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	defer s.Close()

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1",
	} {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

// Schema tests

func TestSchema_AccountsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "accounts")
	for _, col := range []string{"address", "owner", "bump", "data", "created_seq", "updated_seq"} {
		if !contains(columns, col) {
			t.Errorf("accounts table missing column %q", col)
		}
	}
}

func TestSchema_EventsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "events")
	for _, col := range []string{"seq", "id", "kind", "address", "owner", "value", "message"} {
		if !contains(columns, col) {
			t.Errorf("events table missing column %q", col)
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	if !contains(getTableIndexes(t, s.db, "accounts"), "idx_accounts_owner") {
		t.Error("accounts table missing index idx_accounts_owner")
	}
	if !contains(getTableIndexes(t, s.db, "events"), "idx_events_address") {
		t.Error("events table missing index idx_events_address")
	}
}

func TestSchema_UserVersion(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestMigration_AddsEventIndexToOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// Simulate a database created before the index existed.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("create schema failed: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if !contains(getTableIndexes(t, s.db, "events"), "idx_events_address") {
		t.Error("migration did not add idx_events_address")
	}
}

// Constraint tests

func TestConstraint_EventRequiresAccount(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO events (seq, id, kind, address, owner, value, message)
		VALUES (1, 'x', 'initialized', 'missing', 'owner', 0, 'counter initialized')
	`)
	if err == nil {
		t.Error("expected foreign key violation for event without account")
	}
}

func TestConstraint_EventKindChecked(t *testing.T) {
	s := createTestStore(t)
	rec := seedAccount(t, s, testOwner(1), 0)

	_, err := s.db.Exec(`
		INSERT INTO events (seq, id, kind, address, owner, value, message)
		VALUES (99, 'x', 'deleted', ?, ?, 0, 'gone')
	`, rec.Address.String(), rec.Owner.String())
	if err == nil {
		t.Error("expected CHECK violation for unknown event kind")
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
