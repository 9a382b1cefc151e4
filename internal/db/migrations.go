/*-------------------------------------------------------------------------
 *
 * migrations.go
 *    SQL migration runner for DocFlow
 *
 * Applies *.sql files from the migrations directory in lexical order and
 * records applied versions in docflow.schema_migrations.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/migrations.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/atelierflow/docflow/internal/metrics"
)

/* MigrationRunner applies versioned SQL migrations */
type MigrationRunner struct {
	db  *sqlx.DB
	dir string
}

/* NewMigrationRunner creates a runner over the given migrations directory */
func NewMigrationRunner(db *sqlx.DB, dir string) (*MigrationRunner, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path is not a directory: %s", dir)
	}
	return &MigrationRunner{db: db, dir: dir}, nil
}

const createMigrationsTableQuery = `
	CREATE SCHEMA IF NOT EXISTS docflow;
	CREATE TABLE IF NOT EXISTS docflow.schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

/* Run applies all pending migrations in lexical order */
func (r *MigrationRunner) Run(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := map[string]bool{}
	versions := []string{}
	if err := r.db.SelectContext(ctx, &versions, `SELECT version FROM docflow.schema_migrations`); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO docflow.schema_migrations (version) VALUES ($1)`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}

		metrics.InfoWithContext(ctx, "Applied migration", map[string]interface{}{
			"version": version,
		})
	}

	return nil
}
