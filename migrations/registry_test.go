package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestAppGrantsMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_appsession_app_grants.up.sql",
		"data/sql/migrations/00001_appsession_app_grants.down.sql",
		"data/sql/migrations/sqlite/00001_appsession_app_grants.up.sql",
		"data/sql/migrations/sqlite/00001_appsession_app_grants.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteAppGrantsMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-app-grants?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	ctx := context.Background()
	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_appsession_app_grants.up.sql"); err != nil {
		t.Fatalf("apply app grants migration up: %v", err)
	}

	insertStatement := `
		INSERT INTO app_grants (
			id,
			app_id,
			version,
			encrypted_payload,
			payload_format,
			payload_version,
			requested_grants,
			status,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, insertStatement,
		"grant-1", "net.maidsafe.examples.notes", 1, []byte("cipher-v1"),
		"auth_uri", 1, `["_public:read"]`, "active",
		"2026-08-01T00:00:00Z", "2026-08-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert seed grant: %v", err)
	}

	if _, err := db.ExecContext(ctx, insertStatement,
		"grant-2", "net.maidsafe.examples.notes", 2, []byte("cipher-v2"),
		"auth_uri", 1, `["_public:read"]`, "active",
		"2026-08-02T00:00:00Z", "2026-08-02T00:00:00Z",
	); err == nil {
		t.Fatalf("expected single-active-grant-per-app constraint violation")
	}

	if _, err := db.ExecContext(ctx, insertStatement,
		"grant-2", "net.maidsafe.examples.notes", 2, []byte("cipher-v2"),
		"auth_uri", 1, `["_public:read"]`, "revoked",
		"2026-08-02T00:00:00Z", "2026-08-02T00:00:00Z",
	); err != nil {
		t.Fatalf("insert revoked version: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM app_grants WHERE app_id = ?`,
		"net.maidsafe.examples.notes",
	).Scan(&count); err != nil {
		t.Fatalf("count grant rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 grant rows, got %d", count)
	}

	if err := execSQLMigration(ctx, db, sqliteMigrations, "00001_appsession_app_grants.down.sql"); err != nil {
		t.Fatalf("apply app grants migration down: %v", err)
	}

	var tableName string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"app_grants",
	).Scan(&tableName)
	if err != sql.ErrNoRows {
		t.Fatalf("expected app_grants table to be dropped, err=%v name=%q", err, tableName)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
