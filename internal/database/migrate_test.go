// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validEventTypes must match the ENUM values on auth_events.event_type
// and the EventType constants in internal/authlog. Update both together.
// Current ENUM: ENUM('sign_in', 'sign_up', 'sign_out', 'password_reset',
// 'profile_update', 'session_refresh'), defined in 000002.
var validEventTypes = map[string]bool{
	"sign_in":         true,
	"sign_up":         true,
	"sign_out":        true,
	"password_reset":  true,
	"profile_update":  true,
	"session_refresh": true,
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_EventTypeValues scans all .up.sql migration files for
// INSERT or UPDATE statements that reference the auth_events table and
// validates that any event_type values used are valid ENUM members. This
// prevents the "Data truncated for column 'event_type'" crash (Error 1265)
// that occurs when an invalid ENUM value is used.
func TestMigrations_EventTypeValues(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	// Match event_type = 'value' or event_type, ... 'value' patterns.
	typePattern := regexp.MustCompile(`event_type\s*[=,]\s*'([^']+)'`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)

		// Only check files that reference the auth_events table.
		if !strings.Contains(content, "auth_events") {
			continue
		}

		// Skip ALTER TABLE and CREATE TABLE statements (they define the
		// ENUM, not use it). We only care about INSERT/UPDATE statements.
		lines := strings.Split(content, "\n")
		inDDL := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(strings.ToUpper(line))
			if strings.HasPrefix(trimmed, "ALTER TABLE") || strings.HasPrefix(trimmed, "CREATE TABLE") {
				inDDL = true
			}
			if inDDL {
				if strings.Contains(line, ";") {
					inDDL = false
				}
				continue
			}

			matches := typePattern.FindAllStringSubmatch(line, -1)
			for _, match := range matches {
				value := match[1]
				if !validEventTypes[value] {
					t.Errorf("%s: invalid event type %q; valid values: sign_in, sign_up, sign_out, password_reset, profile_update, session_refresh",
						filepath.Base(f), value)
				}
			}
		}
	}
}

// TestMigrations_UpDownPairs verifies every .up.sql migration has a
// matching .down.sql, so rollbacks never hit a missing file mid-sequence.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("%s has no matching down migration", filepath.Base(up))
		}
	}
}

// TestMigrations_ProductsSchemaColumns checks that the products table DDL
// declares every column the catalog repository selects. A column missing
// here would only surface as a runtime scan error.
func TestMigrations_ProductsSchemaColumns(t *testing.T) {
	dir := migrationsDir(t)
	data, err := os.ReadFile(filepath.Join(dir, "000001_create_products.up.sql"))
	if err != nil {
		t.Fatalf("reading products migration: %v", err)
	}
	content := string(data)

	// Must match productColumns in internal/catalog/repository.go.
	columns := []string{
		"id", "slug", "name", "description", "price_cents", "currency",
		"image_url", "stock", "featured", "active", "created_at", "updated_at",
	}
	for _, col := range columns {
		if !strings.Contains(content, col) {
			t.Errorf("products migration missing column %q", col)
		}
	}
}
