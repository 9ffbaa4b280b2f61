package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/state"
)

// PostService handles business logic related to the feed.
type PostService struct {
	state *state.State
	now   func() time.Time
}

// NewPostService creates a new PostService.
func NewPostService(st *state.State) *PostService {
	return &PostService{
		state: st,
		now:   time.Now,
	}
}

// WithClock replaces the time source.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// nextIDLocked derives an id from the clock, bumping it past the newest
// existing id so ids stay unique and increasing.
func (s *PostService) nextIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	for _, p := range s.state.Posts {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	return id
}

func (s *PostService) findLocked(id int64) (int, *models.Post) {
	for i, p := range s.state.Posts {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// CreatePost publishes a post for the session user at the top of the feed
// and clears that user's draft.
func (s *PostService) CreatePost(ctx context.Context, text, image string) (*models.Post, error) {
	s.state.Lock()
	defer s.state.Unlock()

	owner, err := requireSession(s.state, "post")
	if err != nil {
		return nil, err
	}
	user, ok := s.state.Users[owner]
	if !ok {
		return nil, models.NewUnauthenticatedError("session user no longer exists")
	}

	now := s.now()
	post, err := models.NewPost(s.nextIDLocked(now), owner, text, image, now)
	if err != nil {
		return nil, err
	}

	s.state.Posts = append([]*models.Post{post}, s.state.Posts...)
	user.Stats.Add(1, 0, 0)
	if err := s.state.Commit(ctx, state.Posts, state.Users); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := s.state.Drafts().Clear(ctx, owner); err != nil {
		log.Printf("Warning: failed to clear draft for %s: %v", owner, err)
	}
	return post.Clone(), nil
}

// EditPost replaces the text of a post owned by byUser and stamps EditedAt.
func (s *PostService) EditPost(ctx context.Context, postID int64, text, byUser string) (*models.Post, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if _, err := requireSession(s.state, "edit"); err != nil {
		return nil, err
	}
	_, post := s.findLocked(postID)
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}
	if post.User != byUser {
		return nil, models.NewForbiddenError("cannot edit another user's post")
	}
	text = strings.TrimSpace(text)
	if text == "" && post.Image == "" {
		return nil, models.NewEmptyContentError()
	}

	editedAt := s.now().UTC()
	post.Text = text
	post.EditedAt = &editedAt
	if err := s.state.Commit(ctx, state.Posts); err != nil {
		return nil, fmt.Errorf("failed to edit post: %w", err)
	}
	return post.Clone(), nil
}

// DeletePost removes a post owned by byUser. The stats that post
// contributed (the owner's post and likes, each commenter's comments) are
// taken back, floored at zero.
func (s *PostService) DeletePost(ctx context.Context, postID int64, byUser string) error {
	s.state.Lock()
	defer s.state.Unlock()

	if _, err := requireSession(s.state, "delete"); err != nil {
		return err
	}
	idx, post := s.findLocked(postID)
	if post == nil {
		return models.NewNotFoundError("post", postID)
	}
	if post.User != byUser {
		return models.NewForbiddenError("cannot delete another user's post")
	}

	s.state.Posts = append(s.state.Posts[:idx:idx], s.state.Posts[idx+1:]...)
	if owner, ok := s.state.Users[post.User]; ok {
		owner.Stats.Add(-1, -len(post.LikedBy), 0)
	}
	for _, c := range post.Comments {
		if commenter, ok := s.state.Users[c.User]; ok {
			commenter.Stats.Add(0, 0, -1)
		}
	}

	if err := s.state.Commit(ctx, state.Posts, state.Users); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// ToggleLike likes or unlikes a post on behalf of byUser and adjusts the
// post owner's like count. It reports whether the post is now liked.
func (s *PostService) ToggleLike(ctx context.Context, postID int64, byUser string) (bool, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if _, err := requireSession(s.state, "like"); err != nil {
		return false, err
	}
	_, post := s.findLocked(postID)
	if post == nil {
		return false, models.NewNotFoundError("post", postID)
	}
	if _, ok := s.state.Users[byUser]; !ok {
		return false, models.NewNotFoundError("user", byUser)
	}

	liked := post.ToggleLike(byUser)
	if owner, ok := s.state.Users[post.User]; ok {
		if liked {
			owner.Stats.Add(0, 1, 0)
		} else {
			owner.Stats.Add(0, -1, 0)
		}
	}

	if err := s.state.Commit(ctx, state.Posts, state.Users); err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, nil
}

// AddComment appends a comment by byUser. Text that is empty after
// trimming is ignored and yields a nil comment.
func (s *PostService) AddComment(ctx context.Context, postID int64, byUser, text string) (*models.Comment, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if _, err := requireSession(s.state, "comment"); err != nil {
		return nil, err
	}
	_, post := s.findLocked(postID)
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	commenter, ok := s.state.Users[byUser]
	if !ok {
		return nil, models.NewNotFoundError("user", byUser)
	}

	comment, err := models.NewComment(byUser, text, s.now())
	if err != nil {
		return nil, err
	}
	post.Comments = append(post.Comments, *comment)
	commenter.Stats.Add(0, 0, 1)

	if err := s.state.Commit(ctx, state.Posts, state.Users); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}

// ListPosts returns copies of the posts whose owner or text contains filter,
// case-insensitively, in feed order. An empty filter returns every post.
func (s *PostService) ListPosts(filter string) []*models.Post {
	q := strings.ToLower(strings.TrimSpace(filter))

	s.state.Lock()
	defer s.state.Unlock()

	result := make([]*models.Post, 0, len(s.state.Posts))
	for _, p := range s.state.Posts {
		if p.Matches(q) {
			result = append(result, p.Clone())
		}
	}
	return result
}

// Search is the explore view's query over the feed.
func (s *PostService) Search(query string) []*models.Post {
	return s.ListPosts(query)
}

// GetPost returns a copy of a single post.
func (s *PostService) GetPost(postID int64) (*models.Post, error) {
	s.state.Lock()
	defer s.state.Unlock()

	_, post := s.findLocked(postID)
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}
	return post.Clone(), nil
}

// RecomputeStats rebuilds a user's stats from the posts. Calling it again
// without intervening changes returns the same value and writes nothing.
func (s *PostService) RecomputeStats(ctx context.Context, username string) (models.Stats, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if _, ok := s.state.Users[username]; !ok {
		return models.Stats{}, models.NewNotFoundError("user", username)
	}
	stats, changed := s.state.RecomputeStatsLocked(username)
	if changed {
		if err := s.state.Commit(ctx, state.Users); err != nil {
			return models.Stats{}, fmt.Errorf("failed to save stats: %w", err)
		}
	}
	return stats, nil
}

// RecomputeAll reconciles every user's stats.
func (s *PostService) RecomputeAll(ctx context.Context) error {
	s.state.Lock()
	defer s.state.Unlock()

	if s.state.RecomputeAllLocked() {
		return s.state.Commit(ctx, state.Users)
	}
	return nil
}

// SaveDraft stores unsent text for the session user.
func (s *PostService) SaveDraft(ctx context.Context, text string) error {
	s.state.Lock()
	defer s.state.Unlock()

	owner, err := requireSession(s.state, "save a draft")
	if err != nil {
		return err
	}
	return s.state.Drafts().Save(ctx, owner, text)
}

// LoadDraft returns the session user's draft, or "".
func (s *PostService) LoadDraft(ctx context.Context) (string, error) {
	s.state.Lock()
	defer s.state.Unlock()

	owner, err := requireSession(s.state, "load a draft")
	if err != nil {
		return "", err
	}
	return s.state.Drafts().Get(ctx, owner)
}

// ClearDraft discards the session user's draft.
func (s *PostService) ClearDraft(ctx context.Context) error {
	s.state.Lock()
	defer s.state.Unlock()

	owner, err := requireSession(s.state, "clear a draft")
	if err != nil {
		return err
	}
	return s.state.Drafts().Clear(ctx, owner)
}
