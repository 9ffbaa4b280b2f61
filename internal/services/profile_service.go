package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"campusfeed/internal/models"
	"campusfeed/internal/state"
)

// ProfileView is the read-only projection shown on a profile page.
type ProfileView struct {
	Username  string         `json:"username"`
	Bio       string         `json:"bio"`
	AvatarURL string         `json:"avatar_url"`
	Stats     models.Stats   `json:"stats"`
	PostCount int            `json:"post_count"`
	Posts     []*models.Post `json:"posts"`
	IsCurrent bool           `json:"is_current"`
}

// ProfileService handles bio, avatar and profile views.
type ProfileService struct {
	state        *state.State
	maxBioLength int
	avatars      *ImageService
}

// NewProfileService creates a new ProfileService. A maxBioLength of 0
// disables the limit. Avatars are checked by the given ImageService, or by
// one with DefaultAvatarMaxBytes when nil.
func NewProfileService(st *state.State, maxBioLength int, avatars *ImageService) *ProfileService {
	if avatars == nil {
		avatars = NewImageService(DefaultAvatarMaxBytes)
	}
	return &ProfileService{
		state:        st,
		maxBioLength: maxBioLength,
		avatars:      avatars,
	}
}

// ownerLocked returns username's record when it is the session user.
func (s *ProfileService) ownerLocked(username, action string) (*models.User, error) {
	current, err := requireSession(s.state, action)
	if err != nil {
		return nil, err
	}
	user, ok := s.state.Users[username]
	if !ok {
		return nil, models.NewNotFoundError("user", username)
	}
	if username != current {
		return nil, models.NewForbiddenError("cannot change another user's profile")
	}
	return user, nil
}

// UpdateBio stores the trimmed bio of the session user.
func (s *ProfileService) UpdateBio(ctx context.Context, username, text string) error {
	text = strings.TrimSpace(text)
	if s.maxBioLength > 0 && utf8.RuneCountInString(text) > s.maxBioLength {
		return models.NewInvalidInputError(fmt.Sprintf("bio too long (max %d characters)", s.maxBioLength))
	}

	s.state.Lock()
	defer s.state.Unlock()

	user, err := s.ownerLocked(username, "update your bio")
	if err != nil {
		return err
	}
	user.Bio = text
	if err := s.state.Commit(ctx, state.Users); err != nil {
		return fmt.Errorf("failed to update bio: %w", err)
	}
	return nil
}

// UpdateAvatar replaces the session user's avatar with an image data URL
// within the avatar size limit. An empty image restores the placeholder.
func (s *ProfileService) UpdateAvatar(ctx context.Context, username, image string) error {
	if image != "" {
		if err := s.avatars.Validate(image); err != nil {
			return err
		}
	}

	s.state.Lock()
	defer s.state.Unlock()

	user, err := s.ownerLocked(username, "update your avatar")
	if err != nil {
		return err
	}
	user.Avatar = image
	if err := s.state.Commit(ctx, state.Users); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

// GetProfileView projects a user's profile; an empty username means the
// session user. Stats are derived from the posts.
func (s *ProfileService) GetProfileView(username string) (*ProfileView, error) {
	s.state.Lock()
	defer s.state.Unlock()

	if username == "" {
		username = s.state.Session
	}
	user, ok := s.state.Users[username]
	if !ok {
		return nil, models.NewNotFoundError("user", username)
	}

	posts := make([]*models.Post, 0)
	for _, p := range s.state.Posts {
		if p.User == username {
			posts = append(posts, p.Clone())
		}
	}

	return &ProfileView{
		Username:  username,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL(),
		Stats:     models.ComputeStats(username, s.state.Posts),
		PostCount: len(posts),
		Posts:     posts,
		IsCurrent: username == s.state.Session,
	}, nil
}
