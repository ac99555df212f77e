package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mcspec/domain/core"
	"mcspec/domain/modelspec"
	"mcspec/domain/snapshot"
	"mcspec/ports"

	"github.com/jmoiron/sqlx"
)

// historyRepository implements the HistoryRepository interface
type historyRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlx.DB) ports.HistoryRepository {
	return &historyRepository{db: db}
}

type historyRow struct {
	ID          string    `db:"id"`
	Mode        string    `db:"mode"`
	Formula     string    `db:"formula"`
	Fingerprint string    `db:"fingerprint"`
	DatasetID   string    `db:"dataset_id"`
	Spec        []byte    `db:"spec"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r historyRow) toSnapshot() (*snapshot.Snapshot, error) {
	spec := &modelspec.ModelSpec{}
	if err := json.Unmarshal(r.Spec, spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec for %s: %w", r.ID, err)
	}
	return &snapshot.Snapshot{
		ID:          core.HistoryID(r.ID),
		Mode:        snapshot.Mode(r.Mode),
		Formula:     r.Formula,
		Fingerprint: core.SpecHash(r.Fingerprint),
		DatasetID:   core.DatasetID(r.DatasetID),
		Spec:        spec,
		CreatedAt:   core.NewTimestamp(r.CreatedAt),
	}, nil
}

const historyColumns = `id, mode, formula, fingerprint, dataset_id, spec, created_at`

// Save inserts or replaces a snapshot
func (r *historyRepository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	specJSON, err := json.Marshal(s.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	query := `INSERT INTO model_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			mode = EXCLUDED.mode,
			formula = EXCLUDED.formula,
			fingerprint = EXCLUDED.fingerprint,
			dataset_id = EXCLUDED.dataset_id,
			spec = EXCLUDED.spec`

	_, err = r.db.ExecContext(ctx, query,
		s.ID.String(), string(s.Mode), s.Formula, s.Fingerprint.String(), s.DatasetID.String(), specJSON, s.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save history snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID
func (r *historyRepository) GetByID(ctx context.Context, id core.HistoryID) (*snapshot.Snapshot, error) {
	var row historyRow
	err := r.db.GetContext(ctx, &row, `SELECT `+historyColumns+` FROM model_history WHERE id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrHistoryNotFound, id)
		}
		return nil, fmt.Errorf("failed to get history snapshot: %w", err)
	}
	return row.toSnapshot()
}

// List returns the newest snapshots first
func (r *historyRepository) List(ctx context.Context, limit int) ([]*snapshot.Snapshot, error) {
	query := `SELECT ` + historyColumns + ` FROM model_history ORDER BY created_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	out := make([]*snapshot.Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSnapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Prune deletes everything but the newest keep snapshots
func (r *historyRepository) Prune(ctx context.Context, keep int) (int, error) {
	query := `DELETE FROM model_history WHERE id NOT IN (
		SELECT id FROM model_history ORDER BY created_at DESC, id DESC LIMIT $1
	)`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return int(n), nil
}
