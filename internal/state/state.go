// Package state holds the in-memory mirror of the persisted collections.
// Services mutate it under its lock and flush through the repositories
// after every mutation.
package state

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"

	"campusfeed/internal/models"
	"campusfeed/internal/repositories"
)

// Collection names a persisted collection in change notifications.
type Collection string

const (
	Users   Collection = "users"
	Posts   Collection = "posts"
	Saved   Collection = "saved"
	Session Collection = "session"
	Market  Collection = "market"
)

// SavedScope decides who owns the saved marketplace list.
type SavedScope string

const (
	// SavedPerUser keeps one saved list per logged-in user.
	SavedPerUser SavedScope = "user"
	// SavedPerDevice keeps a single list shared by everyone on the store.
	SavedPerDevice SavedScope = "device"
)

// ChangeNotifier is told which collections were flushed.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, collections ...Collection)
}

// State is the application state. Callers must hold the lock (Lock/Unlock)
// while reading or mutating the exported collections.
type State struct {
	sync.Mutex

	Users   map[string]*models.User
	Posts   []*models.Post
	Market  []models.MarketItem
	Saved   []string
	Session string

	repos      repositories.Repositories
	savedScope SavedScope
	notifier   ChangeNotifier
	committed  snapshot
}

// New creates a State with empty collections. Call Load to hydrate it.
func New(repos repositories.Repositories, scope SavedScope) *State {
	if scope == "" {
		scope = SavedPerUser
	}
	s := &State{
		Users:      make(map[string]*models.User),
		Posts:      []*models.Post{},
		Market:     []models.MarketItem{},
		Saved:      []string{},
		repos:      repos,
		savedScope: scope,
	}
	s.markCommittedLocked(Users, Posts, Market, Saved, Session)
	return s
}

// SetNotifier installs the notifier called after each commit.
func (s *State) SetNotifier(n ChangeNotifier) {
	s.Lock()
	defer s.Unlock()
	s.notifier = n
}

// Drafts exposes the draft repository; drafts are not mirrored in memory.
func (s *State) Drafts() repositories.DraftRepository {
	return s.repos.Drafts
}

// SavedScope reports how saved items are scoped.
func (s *State) SavedScope() SavedScope {
	return s.savedScope
}

// SavedOwner returns the owner of the saved list for the current session:
// the session user in per-user scope, "" in device scope.
func (s *State) SavedOwner() string {
	if s.savedScope == SavedPerDevice {
		return ""
	}
	return s.Session
}

// Load hydrates every collection from the store, seeds the catalog on first
// run and reconciles the stats cache against the posts.
func (s *State) Load(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	catalog, found, err := s.repos.Market.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to load market catalog: %w", err)
	}
	if !found {
		catalog = models.DefaultMarketItems()
		if err := s.repos.Market.SaveCatalog(ctx, catalog); err != nil {
			return fmt.Errorf("failed to seed market catalog: %w", err)
		}
		log.Printf("Seeded market catalog with %d items", len(catalog))
	}
	s.Market = catalog

	session, err := s.repos.Session.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	s.Session = session

	if err := s.reloadLocked(ctx); err != nil {
		return err
	}

	if s.Session != "" {
		if _, ok := s.Users[s.Session]; !ok {
			log.Printf("Session user %s no longer exists, logging out", s.Session)
			s.Session = ""
			if err := s.repos.Session.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear stale session: %w", err)
			}
			if err := s.loadSavedLocked(ctx); err != nil {
				return err
			}
		}
	}

	if s.RecomputeAllLocked() {
		if err := s.repos.Users.SaveAll(ctx, s.Users); err != nil {
			return fmt.Errorf("failed to save reconciled stats: %w", err)
		}
	}
	s.markCommittedLocked(Users, Posts, Market, Saved, Session)
	return nil
}

// Rehydrate re-reads users, posts and saved ids after the store changed
// underneath this instance and recomputes the stats. Last writer wins.
func (s *State) Rehydrate(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if err := s.reloadLocked(ctx); err != nil {
		return err
	}
	if s.RecomputeAllLocked() {
		if err := s.repos.Users.SaveAll(ctx, s.Users); err != nil {
			return fmt.Errorf("failed to save reconciled stats: %w", err)
		}
	}
	s.markCommittedLocked(Users, Posts, Market, Saved, Session)
	return nil
}

func (s *State) reloadLocked(ctx context.Context) error {
	users, err := s.repos.Users.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	posts, err := s.repos.Posts.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}
	s.Users, s.Posts = users, posts
	return s.loadSavedLocked(ctx)
}

// loadSavedLocked reads the saved list of the current owner. In per-user
// scope nobody owns a list while logged out.
func (s *State) loadSavedLocked(ctx context.Context) error {
	if s.savedScope == SavedPerUser && s.Session == "" {
		s.Saved = []string{}
		return nil
	}
	saved, err := s.repos.Market.LoadSaved(ctx, s.SavedOwner())
	if err != nil {
		return fmt.Errorf("failed to load saved items: %w", err)
	}
	s.Saved = saved
	return nil
}

// RecomputeStatsLocked rebuilds one user's stats from the posts and reports
// whether the cached value changed. The caller holds the lock.
func (s *State) RecomputeStatsLocked(username string) (models.Stats, bool) {
	u, ok := s.Users[username]
	if !ok {
		return models.Stats{}, false
	}
	fresh := models.ComputeStats(username, s.Posts)
	changed := !reflect.DeepEqual(u.Stats, fresh)
	u.Stats = fresh
	return fresh, changed
}

// RecomputeAllLocked rebuilds every user's stats and reports whether any
// changed. The caller holds the lock.
func (s *State) RecomputeAllLocked() bool {
	changed := false
	for name := range s.Users {
		if _, c := s.RecomputeStatsLocked(name); c {
			changed = true
		}
	}
	return changed
}

// Commit flushes the named collections. When a write fails, the live
// collections go back to the last committed snapshot and the collections
// already written are rewritten from it, so the failed command leaves no
// trace in memory or in the store. The caller holds the lock.
func (s *State) Commit(ctx context.Context, collections ...Collection) error {
	for i, c := range collections {
		if err := s.flushLocked(ctx, c); err != nil {
			s.restoreLocked(s.committed)
			for _, written := range collections[:i] {
				if undoErr := s.flushLocked(ctx, written); undoErr != nil {
					log.Printf("Error restoring %s after failed flush: %v", written, undoErr)
				}
			}
			return err
		}
	}
	s.markCommittedLocked(collections...)
	if s.notifier != nil && len(collections) > 0 {
		s.notifier.NotifyChanged(ctx, collections...)
	}
	return nil
}

func (s *State) flushLocked(ctx context.Context, c Collection) error {
	var err error
	switch c {
	case Users:
		err = s.repos.Users.SaveAll(ctx, s.Users)
	case Posts:
		err = s.repos.Posts.SaveAll(ctx, s.Posts)
	case Saved:
		if s.savedScope == SavedPerUser && s.Session == "" {
			return nil
		}
		err = s.repos.Market.SaveSaved(ctx, s.SavedOwner(), s.Saved)
	case Session:
		err = s.repos.Session.Set(ctx, s.Session)
	case Market:
		err = s.repos.Market.SaveCatalog(ctx, s.Market)
	default:
		err = fmt.Errorf("unknown collection %q", c)
	}
	if err != nil {
		return fmt.Errorf("failed to flush %s: %w", c, err)
	}
	return nil
}

// SetSessionLocked switches the active user, persists it and loads that
// user's saved items. The caller holds the lock.
func (s *State) SetSessionLocked(ctx context.Context, username string) error {
	previous := s.Session
	s.Session = username
	if err := s.repos.Session.Set(ctx, username); err != nil {
		s.Session = previous
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := s.loadSavedLocked(ctx); err != nil {
		return err
	}
	s.markCommittedLocked(Session, Saved)
	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx, Session)
	}
	return nil
}

// Close flushes the collections changed since the last commit, through
// Commit so other instances hear about it. Untouched collections are not
// rewritten and cannot clobber writes made elsewhere.
func (s *State) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	dirty := s.dirtyLocked()
	if len(dirty) == 0 {
		return nil
	}
	return s.Commit(ctx, dirty...)
}
