package services_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"campusfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_UpdateBio(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")

	require.NoError(t, f.profiles.UpdateBio(f.ctx, "alice", "  CS major  "))
	assert.Equal(t, "CS major", f.user(t, "alice").Bio)

	raw, _ := f.raw(t, "se_users")
	assert.Contains(t, raw, `"bio":"CS major"`)

	err := f.profiles.UpdateBio(f.ctx, "alice", strings.Repeat("x", 21))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "CS major", f.user(t, "alice").Bio)

	// multi-byte runes count once
	assert.NoError(t, f.profiles.UpdateBio(f.ctx, "alice", strings.Repeat("é", 20)))
}

func TestProfileService_UpdateBio_Guards(t *testing.T) {
	f := newMemoryFixture(t)
	_, err := f.auth.RegisterUser(f.ctx, "bob", "pw")
	require.NoError(t, err)

	assert.ErrorIs(t, f.profiles.UpdateBio(f.ctx, "bob", "hi"), models.ErrUnauthenticated)

	f.signIn(t, "alice")
	assert.ErrorIs(t, f.profiles.UpdateBio(f.ctx, "bob", "hi"), models.ErrForbidden)
	assert.ErrorIs(t, f.profiles.UpdateBio(f.ctx, "ghost", "hi"), models.ErrNotFound)
	assert.Empty(t, f.user(t, "bob").Bio)
}

func TestProfileService_UpdateAvatar(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")
	pic := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	require.NoError(t, f.profiles.UpdateAvatar(f.ctx, "alice", pic))
	view, err := f.profiles.GetProfileView("alice")
	require.NoError(t, err)
	assert.Equal(t, pic, view.AvatarURL)

	require.NoError(t, f.profiles.UpdateAvatar(f.ctx, "alice", ""))
	view, err = f.profiles.GetProfileView("alice")
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderAvatar("alice"), view.AvatarURL)

	f.signIn(t, "bob")
	assert.ErrorIs(t, f.profiles.UpdateAvatar(f.ctx, "alice", pic), models.ErrForbidden)
}

func TestProfileService_UpdateAvatar_RejectsBadImages(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")

	noise := image.NewRGBA(image.Rect(0, 0, 32, 32))
	rng := rand.New(rand.NewSource(7))
	rng.Read(noise.Pix)
	var big bytes.Buffer
	require.NoError(t, png.Encode(&big, noise))
	require.Greater(t, big.Len(), 256)

	small := base64.StdEncoding.EncodeToString(pngBytes(t))
	tests := []struct {
		name  string
		image string
	}{
		{"oversized", "data:image/png;base64," + base64.StdEncoding.EncodeToString(big.Bytes())},
		{"oversized payload that does not decode", "data:image/png;base64," + strings.Repeat("A", 10_000)},
		{"not a data url", "https://example.com/alice.png"},
		{"not base64", "data:image/png;base64,***"},
		{"plain text", "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))},
		{"declared type differs", "data:image/jpeg;base64," + small},
		{"empty payload", "data:image/png;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.profiles.UpdateAvatar(f.ctx, "alice", tt.image)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Empty(t, f.user(t, "alice").Avatar)
		})
	}

	raw, _ := f.raw(t, "se_users")
	assert.NotContains(t, raw, "data:")
}

func TestProfileService_GetProfileView(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")
	first, err := f.posts.CreatePost(f.ctx, "first", "")
	require.NoError(t, err)
	second, err := f.posts.CreatePost(f.ctx, "second", "")
	require.NoError(t, err)
	f.signIn(t, "bob")
	_, err = f.posts.CreatePost(f.ctx, "bob's post", "")
	require.NoError(t, err)
	_, err = f.posts.ToggleLike(f.ctx, first.ID, "bob")
	require.NoError(t, err)
	_, err = f.posts.AddComment(f.ctx, first.ID, "bob", "nice!")
	require.NoError(t, err)

	view, err := f.profiles.GetProfileView("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)
	assert.False(t, view.IsCurrent)
	assert.Equal(t, 2, view.PostCount)
	require.Len(t, view.Posts, 2)
	assert.Equal(t, second.ID, view.Posts[0].ID)
	assert.Equal(t, first.ID, view.Posts[1].ID)
	assert.Equal(t, models.Stats{Posts: 2, Likes: 1}, view.Stats)

	mine, err := f.profiles.GetProfileView("")
	require.NoError(t, err)
	assert.Equal(t, "bob", mine.Username)
	assert.True(t, mine.IsCurrent)
	assert.Equal(t, models.Stats{Posts: 1, Comments: 1}, mine.Stats)

	_, err = f.profiles.GetProfileView("ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProfileService_GetProfileView_NoSession(t *testing.T) {
	f := newMemoryFixture(t)
	_, err := f.profiles.GetProfileView("")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
