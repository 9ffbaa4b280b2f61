package repositories

import (
	"context"

	"campusfeed/internal/storage"
)

// SessionRepository persists the active username as a bare string.
type SessionRepository interface {
	Current(ctx context.Context) (string, error)
	Set(ctx context.Context, username string) error
	Clear(ctx context.Context) error
}

// DraftRepository persists unsent post text per user as a bare string.
type DraftRepository interface {
	Get(ctx context.Context, username string) (string, error)
	Save(ctx context.Context, username, text string) error
	Clear(ctx context.Context, username string) error
}

// KVSessionRepository is the key-value implementation of SessionRepository.
type KVSessionRepository struct {
	store storage.Store
	keys  storage.Keys
}

// NewKVSessionRepository creates a new instance of KVSessionRepository.
func NewKVSessionRepository(store storage.Store, keys storage.Keys) *KVSessionRepository {
	return &KVSessionRepository{store: store, keys: keys}
}

// Current returns the active username, or "" when logged out.
func (r *KVSessionRepository) Current(ctx context.Context) (string, error) {
	v, _, err := r.store.Get(ctx, r.keys.Current())
	return v, err
}

// Set stores username; an empty name clears the session.
func (r *KVSessionRepository) Set(ctx context.Context, username string) error {
	if username == "" {
		return r.Clear(ctx)
	}
	return r.store.Set(ctx, r.keys.Current(), username)
}

func (r *KVSessionRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, r.keys.Current())
}

// KVDraftRepository is the key-value implementation of DraftRepository.
type KVDraftRepository struct {
	store storage.Store
	keys  storage.Keys
}

// NewKVDraftRepository creates a new instance of KVDraftRepository.
func NewKVDraftRepository(store storage.Store, keys storage.Keys) *KVDraftRepository {
	return &KVDraftRepository{store: store, keys: keys}
}

func (r *KVDraftRepository) Get(ctx context.Context, username string) (string, error) {
	v, _, err := r.store.Get(ctx, r.keys.Draft(username))
	return v, err
}

// Save stores text; empty text removes the draft.
func (r *KVDraftRepository) Save(ctx context.Context, username, text string) error {
	if text == "" {
		return r.Clear(ctx, username)
	}
	return r.store.Set(ctx, r.keys.Draft(username), text)
}

func (r *KVDraftRepository) Clear(ctx context.Context, username string) error {
	return r.store.Delete(ctx, r.keys.Draft(username))
}
