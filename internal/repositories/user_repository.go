package repositories

import (
	"context"

	"campusfeed/internal/models"
	"campusfeed/internal/storage"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	LoadAll(ctx context.Context) (map[string]*models.User, error)
	SaveAll(ctx context.Context, users map[string]*models.User) error
}

// KVUserRepository stores all users as one JSON object keyed by username.
type KVUserRepository struct {
	store storage.Store
	keys  storage.Keys
}

// NewKVUserRepository creates a new instance of KVUserRepository.
func NewKVUserRepository(store storage.Store, keys storage.Keys) *KVUserRepository {
	return &KVUserRepository{store: store, keys: keys}
}

// LoadAll returns every user; a missing or corrupt entry yields an empty map.
func (r *KVUserRepository) LoadAll(ctx context.Context) (map[string]*models.User, error) {
	users, _, err := loadJSON[map[string]*models.User](ctx, r.store, r.keys.Users())
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = make(map[string]*models.User)
	}
	for name, u := range users {
		if u == nil {
			delete(users, name)
			continue
		}
		u.Username = name
	}
	return users, nil
}

// SaveAll replaces the persisted users.
func (r *KVUserRepository) SaveAll(ctx context.Context, users map[string]*models.User) error {
	return saveJSON(ctx, r.store, r.keys.Users(), users)
}
