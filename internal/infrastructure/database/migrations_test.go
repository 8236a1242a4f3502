package database

import (
	"context"
	"embed"
	"io/fs"
	"testing"
	"testing/fstest"
)

//go:embed testdata/*.sql
var fixtureFS embed.FS

// useFixtureMigrations points Migrate at the two-step test schema for the
// duration of one test.
func useFixtureMigrations(t *testing.T) {
	t.Helper()

	orig := migrationSource
	t.Cleanup(func() { migrationSource = orig })

	fixtures, err := fs.Sub(fixtureFS, "testdata")
	if err != nil {
		t.Fatalf("sub filesystem: %v", err)
	}
	migrationSource = fixtures
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count > 0
}

func appliedVersionList(t *testing.T, db *DB) []string {
	t.Helper()

	rows, err := db.DB.QueryContext(context.Background(),
		"SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scanning version: %v", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating versions: %v", err)
	}
	return versions
}

func TestMigrateAppliesInOrder(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	for _, table := range []string{"accounts", "zones"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	versions := appliedVersionList(t, db)
	if len(versions) != 2 || versions[0] != "20260210_000000" || versions[1] != "20260211_093000" {
		t.Errorf("applied versions = %v, want both fixtures oldest first", versions)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	if versions := appliedVersionList(t, db); len(versions) != 2 {
		t.Errorf("applied versions = %v, want exactly the two fixtures", versions)
	}
}

func TestMigrateDownRollsBackLatestOnly(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	if tableExists(t, db, "zones") {
		t.Error("latest migration not rolled back")
	}
	if !tableExists(t, db, "accounts") {
		t.Error("rollback touched an earlier migration")
	}

	versions := appliedVersionList(t, db)
	if len(versions) != 1 || versions[0] != "20260210_000000" {
		t.Errorf("applied versions = %v, want only the first fixture", versions)
	}
}

func TestMigrateWithoutRegisteredSource(t *testing.T) {
	orig := migrationSource
	t.Cleanup(func() { migrationSource = orig })
	migrationSource = nil

	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate with no source: %v", err)
	}
}

func TestLoadMigrationsRejectsOrphanRollback(t *testing.T) {
	orig := migrationSource
	t.Cleanup(func() { migrationSource = orig })
	migrationSource = fstest.MapFS{
		"20260210_000000_accounts.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE accounts;")},
	}

	if _, err := loadMigrations(); err == nil {
		t.Error("rollback without an up step accepted")
	}
}

func TestMigrateDownWithoutHistory(t *testing.T) {
	useFixtureMigrations(t)
	db := openTestDB(t)

	// Create the bookkeeping table with nothing applied.
	if err := db.createMigrationsTable(context.Background()); err != nil {
		t.Fatalf("createMigrationsTable: %v", err)
	}
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Fatalf("MigrateDown with empty history: %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260210_000000_initial_schema.up.sql", "20260210_000000", "initial_schema", true, true},
		{"20260210_000000_initial_schema.down.sql", "20260210_000000", "initial_schema", false, true},
		{"20260211_093000_add_zones.up.sql", "20260211_093000", "add_zones", true, true},
		{"notes.txt", "", "", false, false},
		{"20260210_000000_missing_direction.sql", "", "", false, false},
		{"0001.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parsed (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
