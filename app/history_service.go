package app

import (
	"context"

	"mcspec/domain/core"
	"mcspec/domain/snapshot"
	"mcspec/internal"
	"mcspec/internal/errors"
	"mcspec/ports"
)

// DefaultHistoryLimit caps stored snapshots.
const DefaultHistoryLimit = 25

// HistoryService records resolved models and enforces the retention cap
type HistoryService struct {
	repo   ports.HistoryRepository
	limit  int
	logger *internal.Logger
}

// NewHistoryService creates a history service
func NewHistoryService(repo ports.HistoryRepository, limit int) *HistoryService {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryService{
		repo:   repo,
		limit:  limit,
		logger: internal.DefaultLogger.With("history"),
	}
}

// Record saves a successful resolution. Failed or empty resolutions are not recorded.
func (s *HistoryService) Record(ctx context.Context, res Resolution, datasetID core.DatasetID) (*snapshot.Snapshot, error) {
	if !res.OK() {
		return nil, errors.InvalidInput("only resolved models can be saved to history")
	}
	snap := snapshot.NewSnapshot(snapshot.SnapshotSpec{
		Mode:      snapshot.ModeFormula,
		Formula:   res.Input,
		DatasetID: datasetID,
		Spec:      res.Spec,
	})
	return snap, s.Save(ctx, snap)
}

// Save stores snap and prunes beyond the limit.
func (s *HistoryService) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil || snap.Spec == nil {
		return errors.InvalidInput("snapshot has no model")
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "failed to save history snapshot")
	}
	removed, err := s.repo.Prune(ctx, s.limit)
	if err != nil {
		return errors.Wrap(err, "failed to prune history")
	}
	if removed > 0 {
		s.logger.Debug("pruned %d old snapshots", removed)
	}
	return nil
}

// List returns up to the retention limit of snapshots, newest first.
func (s *HistoryService) List(ctx context.Context) ([]*snapshot.Snapshot, error) {
	snaps, err := s.repo.List(ctx, s.limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list history")
	}
	return snaps, nil
}

// Get loads one snapshot by its string id.
func (s *HistoryService) Get(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	hid, err := core.ParseHistoryID(id)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	snap, err := s.repo.GetByID(ctx, hid)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.WithCode(errors.CodeNotFound, err)
		}
		return nil, errors.Wrap(err, "failed to load history snapshot")
	}
	return snap, nil
}
