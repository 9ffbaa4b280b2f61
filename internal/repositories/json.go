package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"campusfeed/internal/storage"
)

// loadJSON reads key and decodes it as T. It returns the zero T and false
// when the key is absent. Corrupt data is logged and also reported as
// absent so callers fall back to an empty collection.
func loadJSON[T any](ctx context.Context, store storage.Store, key string) (T, bool, error) {
	var zero T
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Printf("Warning: ignoring malformed data under %s: %v", key, err)
		return zero, false, nil
	}
	return v, true, nil
}

// saveJSON marshals v and stores it under key.
func saveJSON(ctx context.Context, store storage.Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := store.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
