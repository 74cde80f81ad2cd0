package port

import (
	"context"
	"errors"

	"sweetshop/internal/core/domain"
)

var (
	// ErrDuplicateName is returned by CreateItem/UpdateItem when the unique
	// index on item names rejects the write.
	ErrDuplicateName = errors.New("duplicate item name")

	// ErrVersionConflict is returned by UpdateItem when the optimistic lock
	// version check fails.
	ErrVersionConflict = errors.New("version conflict")
)

type DatabaseRepository interface {
	// ListItems returns every item in the catalog.
	ListItems(ctx context.Context) ([]domain.Item, error)

	// FindItems returns items matching the filter; an empty filter behaves like ListItems.
	FindItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)

	// GetItem retrieves an item by ID, nil when absent.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// CreateItem persists a new item.
	CreateItem(ctx context.Context, item domain.Item) error

	// UpdateItem writes all mutable fields with a version check for optimistic locking.
	UpdateItem(ctx context.Context, item domain.Item) error

	// DecrementQuantity atomically decreases quantity, returns false if insufficient or absent.
	DecrementQuantity(ctx context.Context, id string, quantity int) (bool, error)

	// IncrementQuantity atomically increases quantity, returns false if absent.
	IncrementQuantity(ctx context.Context, id string, quantity int) (bool, error)

	// DeleteItem removes an item, returns false if absent.
	DeleteItem(ctx context.Context, id string) (bool, error)
}
