package tabular

import (
	"context"
	"fmt"
	"time"

	"mcspec/domain/core"
	"mcspec/domain/dataset"
	"mcspec/ports"

	"github.com/patrickmn/go-cache"
)

// DatasetCache keeps uploaded datasets in memory until they expire
type DatasetCache struct {
	cache *cache.Cache
}

var _ ports.DatasetRepository = (*DatasetCache)(nil)

// NewDatasetCache creates a cache whose entries live for ttl after their
// last save and are purged every ttl/2
func NewDatasetCache(ttl time.Duration) *DatasetCache {
	return &DatasetCache{cache: cache.New(ttl, ttl/2)}
}

func (c *DatasetCache) Save(ctx context.Context, ds *dataset.Dataset) error {
	c.cache.Set(ds.ID.String(), ds, cache.DefaultExpiration)
	return nil
}

func (c *DatasetCache) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	if x, found := c.cache.Get(id.String()); found {
		return x.(*dataset.Dataset), nil
	}
	return nil, fmt.Errorf("%w %s", core.ErrDatasetNotFound, id)
}

func (c *DatasetCache) Delete(ctx context.Context, id core.DatasetID) error {
	c.cache.Delete(id.String())
	return nil
}
