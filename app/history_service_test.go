package app

import (
	"context"
	"fmt"
	"testing"

	"mcspec/adapters/memory"
	"mcspec/domain/core"
	"mcspec/domain/snapshot"
	"mcspec/internal/errors"
	"mcspec/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) Save(ctx context.Context, s *snapshot.Snapshot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockHistoryRepo) GetByID(ctx context.Context, id core.HistoryID) (*snapshot.Snapshot, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*snapshot.Snapshot); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHistoryRepo) List(ctx context.Context, limit int) ([]*snapshot.Snapshot, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*snapshot.Snapshot), args.Error(1)
}

func (m *mockHistoryRepo) Prune(ctx context.Context, keep int) (int, error) {
	args := m.Called(ctx, keep)
	return args.Int(0), args.Error(1)
}

func resolved(t *testing.T, formula string) Resolution {
	t.Helper()
	res := resolve(t, Input{Formula: formula, Options: resolver.Options{AssumeContinuous: true}})
	require.True(t, res.OK(), "err: %v", res.Err)
	return res
}

func TestHistoryService_CapsAtLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewHistoryService(memory.NewHistoryRepository(), 0)

	var last *snapshot.Snapshot
	for i := 0; i < DefaultHistoryLimit+5; i++ {
		snap, err := svc.Record(ctx, resolved(t, fmt.Sprintf("y ~ x%d", i)), "")
		require.NoError(t, err)
		last = snap
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, DefaultHistoryLimit)
	assert.Equal(t, last.ID, list[0].ID)
	assert.Equal(t, "y ~ x29", list[0].Formula)
	assert.Equal(t, "y ~ x5", list[len(list)-1].Formula)

	got, err := svc.Get(ctx, last.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Spec.Equal(last.Spec))
}

func TestHistoryService_RejectsFailedResolution(t *testing.T) {
	svc := NewHistoryService(memory.NewHistoryRepository(), 5)
	_, err := svc.Record(context.Background(), Resolution{State: StateFailed}, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestHistoryService_Get(t *testing.T) {
	ctx := context.Background()
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, 5)

	_, err := svc.Get(ctx, "not-a-uuid")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	id := core.NewHistoryID()
	repo.On("GetByID", ctx, id).Return(nil, core.NewNotFoundError("history record", id.String()))
	_, err = svc.Get(ctx, id.String())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	repo.AssertExpectations(t)
}

func TestHistoryService_SavePrunes(t *testing.T) {
	ctx := context.Background()
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, 3)

	repo.On("Save", ctx, mock.AnythingOfType("*snapshot.Snapshot")).Return(nil)
	repo.On("Prune", ctx, 3).Return(1, nil)

	_, err := svc.Record(ctx, resolved(t, "y ~ x"), core.NewDatasetID())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestHistoryService_SaveError(t *testing.T) {
	ctx := context.Background()
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, 3)

	repo.On("Save", ctx, mock.Anything).Return(fmt.Errorf("disk full"))
	_, err := svc.Record(ctx, resolved(t, "y ~ x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	repo.AssertNotCalled(t, "Prune", mock.Anything, mock.Anything)
}
