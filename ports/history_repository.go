package ports

import (
	"context"

	"mcspec/domain/core"
	"mcspec/domain/snapshot"
)

// HistoryRepository persists resolved-model snapshots
type HistoryRepository interface {
	Save(ctx context.Context, s *snapshot.Snapshot) error
	GetByID(ctx context.Context, id core.HistoryID) (*snapshot.Snapshot, error)
	// List returns the newest snapshots first
	List(ctx context.Context, limit int) ([]*snapshot.Snapshot, error)
	// Prune deletes everything but the newest keep snapshots and reports how many were removed
	Prune(ctx context.Context, keep int) (int, error)
}
