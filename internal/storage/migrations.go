package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Create organizations and transactions tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS organizations (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					industry TEXT NOT NULL DEFAULT 'ecommerce',
					auto_apply_threshold REAL,
					hybrid_threshold REAL,
					use_guardrails INTEGER,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					org_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount_cents TEXT NOT NULL,
					currency TEXT NOT NULL DEFAULT 'USD',
					description TEXT NOT NULL,
					merchant_name TEXT,
					mcc TEXT,
					category_id TEXT,
					confidence REAL,
					reviewed INTEGER NOT NULL DEFAULT 0,
					needs_review INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					raw TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_org_category ON transactions(org_id, category_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Create categorization history table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categorization_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					category_id TEXT NOT NULL,
					confidence REAL NOT NULL,
					stage TEXT NOT NULL,
					guardrails_applied TEXT NOT NULL DEFAULT '[]',
					violations TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_history_transaction ON categorization_history(transaction_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Create vendor overrides table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS vendor_overrides (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				org_id TEXT NOT NULL,
				keyword TEXT NOT NULL,
				category_slug TEXT NOT NULL,
				confidence REAL NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(org_id, keyword)
			)`)
			if err != nil {
				return fmt.Errorf("failed to create vendor_overrides table: %w", err)
			}
			return nil
		},
	},
}

// ExpectedSchemaVersion is the schema version after all migrations have run.
var ExpectedSchemaVersion = len(migrations)

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}
			// PRAGMA statements do not accept bound parameters.
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if finalVersion < ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d is behind expected version %d", finalVersion, ExpectedSchemaVersion)
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
