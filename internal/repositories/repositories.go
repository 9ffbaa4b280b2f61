// Package repositories maps the domain collections onto storage keys.
package repositories

import "campusfeed/internal/storage"

// Repositories groups the repositories the application state needs.
type Repositories struct {
	Users   UserRepository
	Posts   PostRepository
	Market  MarketRepository
	Session SessionRepository
	Drafts  DraftRepository
}

// NewKVRepositories builds every repository over one store.
func NewKVRepositories(store storage.Store, keys storage.Keys) Repositories {
	return Repositories{
		Users:   NewKVUserRepository(store, keys),
		Posts:   NewKVPostRepository(store, keys),
		Market:  NewKVMarketRepository(store, keys),
		Session: NewKVSessionRepository(store, keys),
		Drafts:  NewKVDraftRepository(store, keys),
	}
}
