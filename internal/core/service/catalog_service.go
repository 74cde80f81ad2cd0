package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sweetshop/internal/core/domain"
	"sweetshop/internal/port"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError carries user-facing text for a rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const updateRetries = 3

type CatalogService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
}

func NewCatalogService(db port.DatabaseRepository, cache port.CacheRepository) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

// List returns the full catalog, served from cache when fresh.
func (s *CatalogService) List(ctx context.Context) ([]domain.Item, error) {
	if cached, err := s.cache.GetList(ctx); err == nil && cached != nil {
		return cached, nil
	}

	items, err := s.db.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	// cache is best effort
	s.cache.SetList(ctx, items)

	return items, nil
}

// Search filters the catalog. Substring matches are case-insensitive,
// price bounds inclusive, all present clauses ANDed.
func (s *CatalogService) Search(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	filter.NamePart = strings.TrimSpace(filter.NamePart)
	filter.CategoryPart = strings.TrimSpace(filter.CategoryPart)

	return s.db.FindItems(ctx, filter)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Item, error) {
	if cached, err := s.cache.GetItem(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	item, err := s.db.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	s.cache.SetItem(ctx, *item)

	return item, nil
}

type CreateItemInput struct {
	Name     string
	Category string
	Price    float64
	Quantity int
}

func (s *CatalogService) Create(ctx context.Context, in CreateItemInput) (*domain.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)

	if err := validateItemFields(in.Name, in.Category, in.Price, in.Quantity); err != nil {
		return nil, err
	}

	now := time.Now()
	item := domain.Item{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Category:  in.Category,
		Price:     in.Price,
		Quantity:  in.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateItem(ctx, item); err != nil {
		if errors.Is(err, port.ErrDuplicateName) {
			return nil, &ValidationError{Message: "An item with this name already exists"}
		}
		return nil, err
	}

	s.cache.InvalidateList(ctx)

	return &item, nil
}

// Update applies a partial patch, re-validating changed fields. The write is
// version checked; on a concurrent conflict the patch is re-applied to the
// fresh row, up to a bounded number of attempts.
func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	var lastErr error

	for attempt := 0; attempt < updateRetries; attempt++ {
		item, err := s.db.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrItemNotFound
		}

		if patch.Name != nil {
			item.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			item.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}

		if err := validateItemFields(item.Name, item.Category, item.Price, item.Quantity); err != nil {
			return nil, err
		}

		err = s.db.UpdateItem(ctx, *item)
		if errors.Is(err, port.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if errors.Is(err, port.ErrDuplicateName) {
			return nil, &ValidationError{Message: "An item with this name already exists"}
		}
		if err != nil {
			return nil, err
		}

		s.cache.InvalidateItem(ctx, id)
		s.cache.InvalidateList(ctx)

		return s.reload(ctx, id)
	}

	return nil, fmt.Errorf("update item: %w", lastErr)
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	deleted, err := s.db.DeleteItem(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrItemNotFound
	}

	s.cache.InvalidateItem(ctx, id)
	s.cache.InvalidateList(ctx)

	return nil
}

// Purchase decrements an item's quantity by qty. The check-and-decrement is a
// single conditional statement in the store, so concurrent purchases can never
// drive quantity negative.
func (s *CatalogService) Purchase(ctx context.Context, id string, qty int) (*domain.Item, error) {
	if qty <= 0 {
		return nil, &ValidationError{Message: "Quantity must be positive"}
	}

	item, err := s.db.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	ok, err := s.db.DecrementQuantity(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientStock
	}

	s.cache.InvalidateItem(ctx, id)
	s.cache.InvalidateList(ctx)

	return s.reload(ctx, id)
}

// Restock increments an item's quantity by qty, which must be positive.
func (s *CatalogService) Restock(ctx context.Context, id string, qty int) (*domain.Item, error) {
	if qty <= 0 {
		return nil, &ValidationError{Message: "Restock amount must be positive"}
	}

	item, err := s.db.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	ok, err := s.db.IncrementQuantity(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrItemNotFound
	}

	s.cache.InvalidateItem(ctx, id)
	s.cache.InvalidateList(ctx)

	return s.reload(ctx, id)
}

func (s *CatalogService) reload(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.db.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	return item, nil
}

func validateItemFields(name, category string, price float64, quantity int) error {
	if name == "" {
		return &ValidationError{Message: "Name is required"}
	}
	if category == "" {
		return &ValidationError{Message: "Category is required"}
	}
	if price < 0.01 {
		return &ValidationError{Message: "Price must be greater than 0"}
	}
	if quantity < 0 {
		return &ValidationError{Message: "Quantity cannot be negative"}
	}

	return nil
}
