package repositories

import (
	"context"

	"campusfeed/internal/models"
	"campusfeed/internal/storage"
)

// MarketRepository defines the interface for the catalog and saved item ids.
type MarketRepository interface {
	// LoadCatalog reports false when no catalog has been stored yet.
	LoadCatalog(ctx context.Context) ([]models.MarketItem, bool, error)
	SaveCatalog(ctx context.Context, items []models.MarketItem) error
	// LoadSaved returns the saved ids of owner; "" is the device-wide list.
	LoadSaved(ctx context.Context, owner string) ([]string, error)
	SaveSaved(ctx context.Context, owner string, ids []string) error
}

// KVMarketRepository is the key-value implementation of MarketRepository.
type KVMarketRepository struct {
	store storage.Store
	keys  storage.Keys
}

// NewKVMarketRepository creates a new instance of KVMarketRepository.
func NewKVMarketRepository(store storage.Store, keys storage.Keys) *KVMarketRepository {
	return &KVMarketRepository{store: store, keys: keys}
}

func (r *KVMarketRepository) LoadCatalog(ctx context.Context) ([]models.MarketItem, bool, error) {
	items, found, err := loadJSON[[]models.MarketItem](ctx, r.store, r.keys.Market())
	if err != nil {
		return nil, false, err
	}
	if !found || items == nil {
		return nil, false, nil
	}
	return items, true, nil
}

func (r *KVMarketRepository) SaveCatalog(ctx context.Context, items []models.MarketItem) error {
	return saveJSON(ctx, r.store, r.keys.Market(), items)
}

func (r *KVMarketRepository) LoadSaved(ctx context.Context, owner string) ([]string, error) {
	ids, _, err := loadJSON[[]string](ctx, r.store, r.keys.Saved(owner))
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *KVMarketRepository) SaveSaved(ctx context.Context, owner string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return saveJSON(ctx, r.store, r.keys.Saved(owner), ids)
}
