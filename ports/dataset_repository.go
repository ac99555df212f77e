package ports

import (
	"context"

	"mcspec/domain/core"
	"mcspec/domain/dataset"
)

// DatasetRepository stores uploaded datasets for the lifetime of a session
type DatasetRepository interface {
	Save(ctx context.Context, ds *dataset.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error)
	Delete(ctx context.Context, id core.DatasetID) error
}
