package shared

import (
	"database/sql"
	"testing"
)

func memoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return n == 1
}

func TestMigrations(t *testing.T) {
	t.Run("Embedded Scripts", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("no migrations embedded")
		}

		for i, m := range migrations {
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("version %d listed after %d", m.Version, migrations[i-1].Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("version %d needs both up and down scripts", m.Version)
			}
		}
	})

	t.Run("Creates Ledger Schema", func(t *testing.T) {
		db := memoryDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}

		for _, table := range []string{"violations", "violations_sequence", "schema_migrations"} {
			if !tableExists(t, db, table) {
				t.Errorf("table %s missing after migrate", table)
			}
		}

		var seed int
		if err := db.QueryRow("SELECT value FROM violations_sequence WHERE id = 1").Scan(&seed); err != nil {
			t.Fatalf("sequence row missing: %v", err)
		}
		if seed != 0 {
			t.Errorf("sequence should start at 0, got %d", seed)
		}

		if v, _ := MigrationVersion(db); v != 1 {
			t.Errorf("expected version 1, got %d", v)
		}
	})

	t.Run("Rerun Is A No-op", func(t *testing.T) {
		db := memoryDB(t)
		for range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("migrate: %v", err)
			}
		}

		// A second apply would fail on the duplicate sequence seed row.
		var rows int
		if err := db.QueryRow("SELECT COUNT(*) FROM violations_sequence").Scan(&rows); err != nil {
			t.Fatalf("count sequence rows: %v", err)
		}
		if rows != 1 {
			t.Errorf("expected one sequence row, got %d", rows)
		}
	})

	t.Run("Rollback", func(t *testing.T) {
		db := memoryDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("rollback: %v", err)
		}
		if tableExists(t, db, "violations") || tableExists(t, db, "violations_sequence") {
			t.Error("ledger tables should be dropped by rollback")
		}
		if v, _ := MigrationVersion(db); v != 0 {
			t.Errorf("expected version 0 after rollback, got %d", v)
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("migrate after rollback: %v", err)
		}
		if !tableExists(t, db, "violations") {
			t.Error("violations should be recreated")
		}
	})

	t.Run("stripComments", func(t *testing.T) {
		tests := []struct {
			in, want string
		}{
			{"-- header\nCREATE TABLE t (id TEXT) -- trailing\n\n", "CREATE TABLE t (id TEXT)"},
			{"  \n-- only a comment\n", ""},
			{"DROP TABLE a", "DROP TABLE a"},
		}
		for _, tt := range tests {
			if got := stripComments(tt.in); got != tt.want {
				t.Errorf("stripComments(%q) = %q, want %q", tt.in, got, tt.want)
			}
		}
	})
}
