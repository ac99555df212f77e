// Package memory holds in-process repository implementations used when no
// database is configured.
package memory

import (
	"context"
	"sync"

	"mcspec/domain/core"
	"mcspec/domain/snapshot"
	"mcspec/ports"
)

// historyRepository keeps snapshots in insertion order
type historyRepository struct {
	mu    sync.RWMutex
	order []core.HistoryID
	byID  map[core.HistoryID]*snapshot.Snapshot
}

// NewHistoryRepository creates an empty in-memory history repository
func NewHistoryRepository() ports.HistoryRepository {
	return &historyRepository{byID: make(map[core.HistoryID]*snapshot.Snapshot)}
}

func (r *historyRepository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[s.ID]; !exists {
		r.order = append(r.order, s.ID)
	}
	r.byID[s.ID] = s
	return nil
}

func (r *historyRepository) GetByID(ctx context.Context, id core.HistoryID) (*snapshot.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("history record", id.String())
	}
	return s, nil
}

func (r *historyRepository) List(ctx context.Context, limit int) ([]*snapshot.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*snapshot.Snapshot, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.byID[r.order[i]])
	}
	return out, nil
}

func (r *historyRepository) Prune(ctx context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	excess := len(r.order) - keep
	if excess <= 0 {
		return 0, nil
	}
	for _, id := range r.order[:excess] {
		delete(r.byID, id)
	}
	r.order = append([]core.HistoryID(nil), r.order[excess:]...)
	return excess, nil
}
