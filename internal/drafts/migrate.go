package drafts

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/almostacms/almostacms/internal/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const versionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL PRIMARY KEY)`

// Migrate applies every embedded up migration newer than the database's
// version. Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer src.Close()

	if _, err := db.ExecContext(ctx, versionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	version, err := src.First()
	for ; err == nil; version, err = src.Next(version) {
		if version <= current {
			continue
		}
		if err := apply(ctx, db, src, version); err != nil {
			return err
		}
		log.Info(log.CatDrafts, "applied migration", "version", version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("list migrations: %w", err)
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, src source.Driver, version uint) error {
	r, name, err := src.ReadUp(version)
	if err != nil {
		return fmt.Errorf("read migration %d: %w", version, err)
	}
	stmt, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return fmt.Errorf("read migration %d: %w", version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(stmt)); err != nil {
		return fmt.Errorf("migration %d (%s): %w", version, name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, 0 for a fresh
// database.
func SchemaVersion(ctx context.Context, db *sql.DB) (uint, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return uint(v.Int64), nil
}
