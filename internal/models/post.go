package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment is an immutable remark appended to a post.
type Comment struct {
	ID   string    `json:"id,omitempty"`
	User string    `json:"user" validate:"required"`
	Text string    `json:"text" validate:"required"`
	At   time.Time `json:"at"`
}

// NewComment trims text and rejects it when nothing is left.
func NewComment(user, text string, at time.Time) (*Comment, error) {
	c := &Comment{
		ID:   uuid.New().String(),
		User: user,
		Text: strings.TrimSpace(text),
		At:   at.UTC(),
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Post is a feed entry. Posts are kept most-recent-first.
type Post struct {
	ID        int64      `json:"id" validate:"gt=0"`
	User      string     `json:"user" validate:"required"`
	Text      string     `json:"text" validate:"required_without=Image"`
	Image     string     `json:"image" validate:"required_without=Text"`
	LikedBy   []string   `json:"likedBy"`
	Comments  []Comment  `json:"comments"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt"`
}

// NewPost builds a post; text is trimmed and either text or image must be set.
func NewPost(id int64, user, text, image string, createdAt time.Time) (*Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return nil, NewEmptyContentError()
	}
	p := &Post{
		ID:        id,
		User:      user,
		Text:      text,
		Image:     image,
		LikedBy:   []string{},
		Comments:  []Comment{},
		CreatedAt: createdAt.UTC(),
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Normalize replaces nil collections with empty ones so a loaded post
// serializes the same way as a freshly created one.
func (p *Post) Normalize() {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// LikedByUser reports whether username has liked the post.
func (p *Post) LikedByUser(username string) bool {
	for _, u := range p.LikedBy {
		if u == username {
			return true
		}
	}
	return false
}

// ToggleLike adds or removes username from LikedBy and reports whether the
// post is liked by username afterwards.
func (p *Post) ToggleLike(username string) bool {
	for i, u := range p.LikedBy {
		if u == username {
			p.LikedBy = append(p.LikedBy[:i:i], p.LikedBy[i+1:]...)
			return false
		}
	}
	p.LikedBy = append(p.LikedBy, username)
	return true
}

// CommentsBy counts the comments username left on the post.
func (p *Post) CommentsBy(username string) int {
	n := 0
	for _, c := range p.Comments {
		if c.User == username {
			n++
		}
	}
	return n
}

// Matches reports whether the lowercase query occurs in the owner name or
// the text. An empty query matches everything.
func (p *Post) Matches(lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.User), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Text), lowerQuery)
}

// Clone returns a deep copy safe to hand to callers outside the state lock.
func (p *Post) Clone() *Post {
	c := *p
	c.LikedBy = append([]string{}, p.LikedBy...)
	c.Comments = append([]Comment{}, p.Comments...)
	if p.EditedAt != nil {
		t := *p.EditedAt
		c.EditedAt = &t
	}
	return &c
}
