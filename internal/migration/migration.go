package migration

import (
	"context"

	"mcspec/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range Steps() {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(err, "failed to %s", step.Name)
		}
	}
	return nil
}

// Step is one idempotent schema statement.
type Step struct {
	Name string
	SQL  string
}

// Steps lists the schema statements in execution order.
func Steps() []Step {
	return []Step{
		{Name: "create model_history table", SQL: createHistoryTable},
		{Name: "add model_history columns", SQL: addHistoryColumns},
		{Name: "create model_history indexes", SQL: createHistoryIndexes},
	}
}

const createHistoryTable = `
	CREATE TABLE IF NOT EXISTS model_history (
		id UUID PRIMARY KEY,
		mode VARCHAR(20) NOT NULL DEFAULT 'formula',
		formula TEXT NOT NULL,
		fingerprint VARCHAR(64) NOT NULL,
		spec JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const addHistoryColumns = `
	DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'model_history' AND column_name = 'dataset_id'
		) THEN
			ALTER TABLE model_history ADD COLUMN dataset_id VARCHAR(64) NOT NULL DEFAULT '';
		END IF;
	END $$;
`

const createHistoryIndexes = `
	CREATE INDEX IF NOT EXISTS idx_model_history_created_at ON model_history(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_model_history_fingerprint ON model_history(fingerprint);
`
