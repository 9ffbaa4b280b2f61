package repositories

import (
	"context"

	"campusfeed/internal/models"
	"campusfeed/internal/storage"
)

// PostRepository defines the interface for post data access. Posts are
// kept most-recent-first.
type PostRepository interface {
	LoadAll(ctx context.Context) ([]*models.Post, error)
	SaveAll(ctx context.Context, posts []*models.Post) error
}

// KVPostRepository stores all posts as one JSON array.
type KVPostRepository struct {
	store storage.Store
	keys  storage.Keys
}

// NewKVPostRepository creates a new instance of KVPostRepository.
func NewKVPostRepository(store storage.Store, keys storage.Keys) *KVPostRepository {
	return &KVPostRepository{store: store, keys: keys}
}

// LoadAll returns every post in stored order.
func (r *KVPostRepository) LoadAll(ctx context.Context) ([]*models.Post, error) {
	stored, _, err := loadJSON[[]*models.Post](ctx, r.store, r.keys.Posts())
	if err != nil {
		return nil, err
	}
	posts := make([]*models.Post, 0, len(stored))
	for _, p := range stored {
		if p == nil {
			continue
		}
		p.Normalize()
		posts = append(posts, p)
	}
	return posts, nil
}

// SaveAll replaces the persisted posts.
func (r *KVPostRepository) SaveAll(ctx context.Context, posts []*models.Post) error {
	if posts == nil {
		posts = []*models.Post{}
	}
	return saveJSON(ctx, r.store, r.keys.Posts(), posts)
}
