package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sweetshop/internal/core/domain"
)

const (
	itemKeyPrefix = "item:"
	listKey       = "items:all"
	cacheTTL      = 5 * time.Minute
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	data, err := r.client.Get(ctx, itemKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item domain.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *RedisAdapter) SetItem(ctx context.Context, item domain.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, itemKeyPrefix+item.ID, data, cacheTTL).Err()
}

func (r *RedisAdapter) InvalidateItem(ctx context.Context, id string) error {
	return r.client.Del(ctx, itemKeyPrefix+id).Err()
}

func (r *RedisAdapter) GetList(ctx context.Context) ([]domain.Item, error) {
	data, err := r.client.Get(ctx, listKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *RedisAdapter) SetList(ctx context.Context, items []domain.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, listKey, data, cacheTTL).Err()
}

func (r *RedisAdapter) InvalidateList(ctx context.Context) error {
	return r.client.Del(ctx, listKey).Err()
}
