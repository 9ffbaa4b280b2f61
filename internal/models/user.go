package models

import (
	"net/url"
	"strings"
)

const avatarPlaceholderBase = "https://api.dicebear.com/6.x/identicon/svg?seed="

// Stats caches per-user counters derivable from the post collection.
type Stats struct {
	Posts    int `json:"posts" validate:"gte=0"`
	Likes    int `json:"likes" validate:"gte=0"`
	Comments int `json:"comments" validate:"gte=0"`
}

// Add shifts each counter by the given delta, never going below zero.
func (s *Stats) Add(posts, likes, comments int) {
	s.Posts = floorZero(s.Posts + posts)
	s.Likes = floorZero(s.Likes + likes)
	s.Comments = floorZero(s.Comments + comments)
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// User represents a registered account. Username is the key of the
// persisted users object and is not repeated inside the value.
type User struct {
	Username string `json:"-" validate:"required"`
	Password string `json:"password" validate:"required"` // bcrypt hash
	Bio      string `json:"bio"`
	Avatar   string `json:"pic"`
	Stats    Stats  `json:"stats"`
}

// NewUser builds a user with zeroed stats and no bio or avatar.
func NewUser(username, passwordHash string) (*User, error) {
	u := &User{
		Username: strings.TrimSpace(username),
		Password: passwordHash,
	}
	if err := Validate(u); err != nil {
		return nil, err
	}
	return u, nil
}

// AvatarURL returns the stored avatar or the deterministic placeholder.
func (u *User) AvatarURL() string {
	if u.Avatar != "" {
		return u.Avatar
	}
	return PlaceholderAvatar(u.Username)
}

// PlaceholderAvatar derives an identicon URL from a username.
func PlaceholderAvatar(username string) string {
	return avatarPlaceholderBase + url.QueryEscape(username)
}

// ComputeStats rebuilds a user's counters strictly from posts: posts owned,
// likes received on owned posts, and comments authored on any post.
func ComputeStats(username string, posts []*Post) Stats {
	var s Stats
	for _, p := range posts {
		if p.User == username {
			s.Posts++
			s.Likes += len(p.LikedBy)
		}
		s.Comments += p.CommentsBy(username)
	}
	return s
}
