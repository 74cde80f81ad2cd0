package port

import (
	"context"

	"sweetshop/internal/core/domain"
)

type CacheRepository interface {
	// GetItem returns a cached item, nil on miss.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// SetItem caches an item with a TTL.
	SetItem(ctx context.Context, item domain.Item) error

	// InvalidateItem drops a cached item.
	InvalidateItem(ctx context.Context, id string) error

	// GetList returns the cached full catalog, nil on miss.
	GetList(ctx context.Context) ([]domain.Item, error)

	// SetList caches the full catalog with a TTL.
	SetList(ctx context.Context, items []domain.Item) error

	// InvalidateList drops the cached catalog.
	InvalidateList(ctx context.Context) error
}
