package state

import (
	"reflect"

	"campusfeed/internal/models"
)

// snapshot is a deep copy of the collections as last written to the store.
type snapshot struct {
	users   map[string]*models.User
	posts   []*models.Post
	market  []models.MarketItem
	saved   []string
	session string
}

func (s *State) snapshotLocked() snapshot {
	users := make(map[string]*models.User, len(s.Users))
	for name, u := range s.Users {
		c := *u
		users[name] = &c
	}
	posts := make([]*models.Post, len(s.Posts))
	for i, p := range s.Posts {
		posts[i] = p.Clone()
	}
	return snapshot{
		users:   users,
		posts:   posts,
		market:  append([]models.MarketItem{}, s.Market...),
		saved:   append([]string{}, s.Saved...),
		session: s.Session,
	}
}

// restoreLocked puts copies of snap back into the live collections.
func (s *State) restoreLocked(snap snapshot) {
	s.Users = make(map[string]*models.User, len(snap.users))
	for name, u := range snap.users {
		c := *u
		s.Users[name] = &c
	}
	s.Posts = make([]*models.Post, len(snap.posts))
	for i, p := range snap.posts {
		s.Posts[i] = p.Clone()
	}
	s.Market = append([]models.MarketItem{}, snap.market...)
	s.Saved = append([]string{}, snap.saved...)
	s.Session = snap.session
}

// markCommittedLocked records the named live collections as the store's
// content.
func (s *State) markCommittedLocked(collections ...Collection) {
	snap := s.snapshotLocked()
	for _, c := range collections {
		switch c {
		case Users:
			s.committed.users = snap.users
		case Posts:
			s.committed.posts = snap.posts
		case Market:
			s.committed.market = snap.market
		case Saved:
			s.committed.saved = snap.saved
		case Session:
			s.committed.session = snap.session
		}
	}
}

// dirtyLocked lists the collections that differ from the last commit.
func (s *State) dirtyLocked() []Collection {
	var dirty []Collection
	if !reflect.DeepEqual(s.Users, s.committed.users) {
		dirty = append(dirty, Users)
	}
	if !reflect.DeepEqual(s.Posts, s.committed.posts) {
		dirty = append(dirty, Posts)
	}
	if !reflect.DeepEqual(s.Saved, s.committed.saved) {
		dirty = append(dirty, Saved)
	}
	if s.Session != s.committed.session {
		dirty = append(dirty, Session)
	}
	if !reflect.DeepEqual(s.Market, s.committed.market) {
		dirty = append(dirty, Market)
	}
	return dirty
}
