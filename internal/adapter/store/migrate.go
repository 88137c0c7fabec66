package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arturoeanton/certify-ai/internal/adapter/store/migrations"
	"github.com/pressly/goose/v3"
)

// gooseUpContext is a seam for tests that must not touch a real database.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations for dialect ("postgres" or
// "sqlite3").
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	dir := "postgres"
	if dialect == dialectSQLite {
		dir = "sqlite"
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
