package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dfryer1193/postboard/shared/db"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations are applied in order, each at most once.
var migrations = []migration{
	{
		version: 1,
		name:    "create_posts_table",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				author TEXT NOT NULL,
				is_banned INTEGER NOT NULL DEFAULT 0,
				likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
				dislikes INTEGER NOT NULL DEFAULT 0 CHECK (dislikes >= 0)
			);

			CREATE INDEX IF NOT EXISTS idx_posts_author
			ON posts(author);
		`,
	},
}

const createSchemaMigrationsQuery = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

func runMigrations(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, createSchemaMigrationsQuery); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var currentVersion int
	err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		err := db.InTx(ctx, conn, nil, func(txCtx context.Context) error {
			executor := db.ExecutorFor(txCtx, conn)
			if _, err := executor.ExecContext(txCtx, m.up); err != nil {
				return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
			}
			if _, err := executor.ExecContext(txCtx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
