package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_first.up.sql":     {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
		"20260101_000000_first.down.sql":   {Data: []byte("DROP TABLE first;")},
		"20260102_120000_second.up.sql":    {Data: []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);")},
		"README.md":                        {Data: []byte("ignored")},
		"20260103_000000_no_direction.sql": {Data: []byte("ignored")},
	}
}

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Path: MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates file and directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "greenhouse.db")

		db, err := Open(config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := db.ExecContext(context.Background(), "CREATE TABLE t (x INTEGER)"); err != nil {
			t.Fatalf("ExecContext() error = %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("memory", func(t *testing.T) {
		db := openMemory(t)
		if err := db.HealthCheck(context.Background()); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})
}

func TestClose_Nil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	versions, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(versions) != 2 || versions[0] != "20260101_000000" || versions[1] != "20260102_120000" {
		t.Errorf("AppliedVersions() = %v", versions)
	}

	// Re-running is a no-op.
	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}

	for _, table := range []string{"first", "second"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrate_FailureStops(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	fsys := fstest.MapFS{
		"20260101_000000_good.up.sql":  {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_bad.up.sql":   {Data: []byte("CREATE TABLE oops (")},
		"20260103_000000_later.up.sql": {Data: []byte("CREATE TABLE later (id INTEGER);")},
	}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error for bad SQL")
	}

	versions, _ := db.AppliedVersions(ctx)
	if len(versions) != 1 || versions[0] != "20260101_000000" {
		t.Errorf("AppliedVersions() = %v, want only the first", versions)
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations(testMigrations())
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("len = %d, want 2", len(migrations))
	}
	if migrations[0].Name != "first" || migrations[0].DownSQL == "" {
		t.Errorf("first migration = %+v", migrations[0])
	}

	if _, err := LoadMigrations(fstest.MapFS{"20260101_000000_x.down.sql": {Data: []byte("x")}}); err == nil {
		t.Error("LoadMigrations() expected error for down-only migration")
	}

	if m, err := LoadMigrations(nil); err != nil || m != nil {
		t.Errorf("LoadMigrations(nil) = %v, %v", m, err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		up      bool
		ok      bool
	}{
		{"20260101_000000_sensor_readings.up.sql", "20260101_000000", "sensor_readings", true, true},
		{"20260101_000000_sensor_readings.down.sql", "20260101_000000", "sensor_readings", false, true},
		{"20260101_000000.up.sql", "20260101_000000", "", true, true},
		{"20260101.up.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
		{"20260101_000000_x.sql", "", "", false, false},
	}

	for _, tt := range tests {
		version, name, up, ok := parseMigrationFilename(tt.in)
		if version != tt.version || name != tt.name || up != tt.up || ok != tt.ok {
			t.Errorf("parseMigrationFilename(%q) = %q, %q, %v, %v", tt.in, version, name, up, ok)
		}
	}
}
