package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// bootstrapSQL renders the bootstrap DDL for the configured embedding
// dimension.
func bootstrapSQL(dim int) (string, error) {
	if dim <= 0 {
		return "", fmt.Errorf("invalid embedding dimension %d", dim)
	}
	raw, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	return fmt.Sprintf(string(raw), dim), nil
}

// EnsureBootstrapped creates the pgvector extension and record table once.
// The meta version row makes re-running on every startup a no-op. An existing
// table whose embedding column does not match the configured dimension fails
// here, at startup, instead of on the first insert.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, dim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'crammer_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}

	if !exists {
		return runBootstrap(ctxBoot, db, dim)
	}

	var hasVersion bool
	if err := db.QueryRowContext(ctxBoot, `SELECT EXISTS (SELECT 1 FROM crammer_meta WHERE version = 1)`).Scan(&hasVersion); err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if !hasVersion {
		return runBootstrap(ctxBoot, db, dim)
	}
	return checkDimension(ctxBoot, db, dim)
}

// checkDimension compares the existing embedding column against the
// configured dimension. pgvector stores the dimension as the column's
// type modifier.
func checkDimension(ctx context.Context, db *sql.DB, dim int) error {
	var existing int
	err := db.QueryRowContext(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'index_records'::regclass AND attname = 'embedding'`).
		Scan(&existing)
	if err != nil {
		return fmt.Errorf("embedding dimension check failed: %w", err)
	}
	if existing != dim {
		return fmt.Errorf("index_records.embedding is vector(%d) but EMBED_DIM is %d", existing, dim)
	}
	return nil
}

func runBootstrap(ctx context.Context, db *sql.DB, dim int) error {
	ddl, err := bootstrapSQL(dim)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
