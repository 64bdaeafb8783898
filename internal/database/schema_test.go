package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	// Check if migrations directory exists
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	// Expected migration files
	expectedMigrations := []string{
		"00001_create_variants_table.sql",
		"00002_create_barcodes_table.sql",
		"00003_create_scan_sessions_table.sql",
		"00004_create_stock_logs_table.sql",
		"00005_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		// Check for goose Up directive
		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}

		// Check for goose Down directive
		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}

		// Check for StatementBegin/End
		if !strings.Contains(contentStr, "-- +goose StatementBegin") {
			t.Errorf("Migration file %s missing '-- +goose StatementBegin' directive", file.Name())
		}

		if !strings.Contains(contentStr, "-- +goose StatementEnd") {
			t.Errorf("Migration file %s missing '-- +goose StatementEnd' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	migrationsDir := "../../migrations"

	expectedTables := map[string]string{
		"variants":      "00001_create_variants_table.sql",
		"barcodes":      "00002_create_barcodes_table.sql",
		"scan_sessions": "00003_create_scan_sessions_table.sql",
		"stock_logs":    "00004_create_stock_logs_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		path := filepath.Join(migrationsDir, migrationFile)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)

		// Check if migration creates the table
		createTableStmt := "CREATE TABLE IF NOT EXISTS " + tableName
		if !strings.Contains(contentStr, createTableStmt) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		// Check if migration has drop table in down section
		dropTableStmt := "DROP TABLE IF EXISTS " + tableName
		if !strings.Contains(contentStr, dropTableStmt) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestVariantsTableHasRequiredColumns(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00001_create_variants_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read variants migration: %v", err)
	}

	contentStr := string(content)
	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"product_code VARCHAR",
		"color_name VARCHAR",
		"current_stock INTEGER",
		"image_url VARCHAR",
		"created_at TIMESTAMP",
		"updated_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Variants table missing required column definition: %s", column)
		}
	}

	// Stock never goes negative at the schema level either
	if !strings.Contains(contentStr, "CHECK (current_stock >= 0)") {
		t.Error("Variants table missing non-negative stock check")
	}

	// One variant per product/color pair
	if !strings.Contains(contentStr, "UNIQUE (product_code, color_name)") {
		t.Error("Variants table missing unique constraint on (product_code, color_name)")
	}
}

func TestBarcodesTableHasUniqueConstraints(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00002_create_barcodes_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read barcodes migration: %v", err)
	}

	contentStr := string(content)

	// One barcode per variant, one variant per barcode number
	if !strings.Contains(contentStr, "variant_id UUID NOT NULL UNIQUE") {
		t.Error("Barcodes table missing unique constraint on variant_id")
	}
	if !strings.Contains(contentStr, "barcode_number CHAR(13) NOT NULL UNIQUE") {
		t.Error("Barcodes table missing unique constraint on barcode_number")
	}

	// Check for foreign key constraint
	if !strings.Contains(contentStr, "FOREIGN KEY (variant_id)") {
		t.Error("Barcodes table missing foreign key constraint to variants")
	}
}

func TestScanSessionsTableHasConstraints(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00003_create_scan_sessions_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read scan_sessions migration: %v", err)
	}

	contentStr := string(content)

	// Check for mode and status constraints with valid values
	for _, value := range []string{"'add'", "'remove'", "'active'", "'confirmed'", "'cancelled'"} {
		if !strings.Contains(contentStr, value) {
			t.Errorf("Scan sessions constraints missing value: %s", value)
		}
	}

	// At most one active session per user, enforced by the store
	if !strings.Contains(contentStr, "uq_scan_sessions_active_user") {
		t.Error("Scan sessions table missing partial unique index on active user sessions")
	}
	if !strings.Contains(contentStr, "WHERE status = 'active'") {
		t.Error("Active-user index missing its status predicate")
	}
}

func TestStockLogsTableHasRequiredColumns(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00004_create_stock_logs_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stock_logs migration: %v", err)
	}

	contentStr := string(content)
	requiredColumns := []string{
		"operation_type VARCHAR",
		"old_value INTEGER",
		"new_value INTEGER",
		"change_amount INTEGER",
		"username VARCHAR",
		"notes TEXT",
		"created_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Stock logs table missing required column definition: %s", column)
		}
	}
}
