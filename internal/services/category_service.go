package services

import (
	"context"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
)

type CategoryStore interface {
	ListCategories(ctx context.Context, typ core.TransactionType) ([]core.Category, error)
}

// CategoryService serves the seeded catalog. The catalog never changes at
// runtime, so entries only leave the cache by TTL.
type CategoryService struct {
	store CategoryStore
	cache *cache.LRUCache[[]core.Category]
}

func NewCategoryService(store CategoryStore, ttl time.Duration) *CategoryService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CategoryService{
		store: store,
		cache: cache.NewLRUCache[[]core.Category](3, ttl),
	}
}

// Cache exposes the underlying cache so a cache.Manager can sweep it.
func (s *CategoryService) Cache() *cache.LRUCache[[]core.Category] {
	return s.cache
}

// List returns categories ordered by name, all of them when typ is empty.
func (s *CategoryService) List(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	if typ != "" && !typ.Valid() {
		return nil, core.Validation("list categories", core.ErrInvalidType)
	}
	key := string(typ)
	if key == "" {
		key = "all"
	}
	cats, err := s.cache.GetOrLoad(key, func() ([]core.Category, error) {
		return s.store.ListCategories(ctx, typ)
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, len(cats))
	copy(out, cats)
	return out, nil
}
