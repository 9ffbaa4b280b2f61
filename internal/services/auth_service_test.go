package services_test

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/repositories"
	"campusfeed/internal/services"
	"campusfeed/internal/state"
	"campusfeed/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// failingStore refuses writes to one key.
type failingStore struct {
	*storage.MemoryStore
	failKey string
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fixture struct {
	ctx      context.Context
	store    storage.Store
	state    *state.State
	auth     *services.AuthService
	posts    *services.PostService
	profiles *services.ProfileService
	market   *services.MarketService
	clock    time.Time
}

func newFixture(t *testing.T, store storage.Store, scope state.SavedScope) *fixture {
	t.Helper()
	ctx := context.Background()
	st := state.New(repositories.NewKVRepositories(store, storage.DefaultKeys), scope)
	require.NoError(t, st.Load(ctx))

	f := &fixture{
		ctx:      ctx,
		store:    store,
		state:    st,
		auth:     services.NewAuthService(st, bcrypt.MinCost),
		profiles: services.NewProfileService(st, 20, services.NewImageService(256)),
		market:   services.NewMarketService(st),
		clock:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	f.posts = services.NewPostService(st).WithClock(func() time.Time { return f.clock })
	return f
}

func newMemoryFixture(t *testing.T) *fixture {
	return newFixture(t, storage.NewMemoryStore(), state.SavedPerUser)
}

// signIn registers username when needed and logs in as them.
func (f *fixture) signIn(t *testing.T, username string) {
	t.Helper()
	f.state.Lock()
	_, exists := f.state.Users[username]
	f.state.Unlock()
	if !exists {
		_, err := f.auth.RegisterUser(f.ctx, username, "pw")
		require.NoError(t, err)
	}
	require.NoError(t, f.auth.LoginUser(f.ctx, username, "pw"))
}

func (f *fixture) user(t *testing.T, username string) models.User {
	t.Helper()
	f.state.Lock()
	defer f.state.Unlock()
	u, ok := f.state.Users[username]
	require.True(t, ok, "user %s missing", username)
	return *u
}

func (f *fixture) raw(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.store.Get(f.ctx, key)
	require.NoError(t, err)
	return v, ok
}

func TestAuthService_RegisterUser(t *testing.T) {
	f := newMemoryFixture(t)

	user, err := f.auth.RegisterUser(f.ctx, "  alice ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.Stats{}, user.Stats)
	assert.Empty(t, user.Bio)
	assert.Empty(t, user.Avatar)
	assert.NotEqual(t, "pw", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("pw")))

	raw, ok := f.raw(t, "se_users")
	require.True(t, ok)
	assert.Contains(t, raw, `"alice":{`)
	assert.Empty(t, f.auth.CurrentUser(), "registering does not log in")
}

func TestAuthService_RegisterUser_Invalid(t *testing.T) {
	f := newMemoryFixture(t)

	_, err := f.auth.RegisterUser(f.ctx, "   ", "pw")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.auth.RegisterUser(f.ctx, "alice", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.auth.RegisterUser(f.ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = f.auth.RegisterUser(f.ctx, "alice", "other")
	assert.ErrorIs(t, err, models.ErrDuplicateUser)

	// usernames are case-sensitive
	_, err = f.auth.RegisterUser(f.ctx, "Alice", "pw")
	assert.NoError(t, err)
}

func TestAuthService_LoginUser(t *testing.T) {
	f := newMemoryFixture(t)
	_, err := f.auth.RegisterUser(f.ctx, "alice", "pw")
	require.NoError(t, err)

	var refreshed []string
	f.auth.OnLogin(func(username string) { refreshed = append(refreshed, username) })

	require.NoError(t, f.auth.LoginUser(f.ctx, "alice", "pw"))
	assert.Equal(t, "alice", f.auth.CurrentUser())
	assert.Equal(t, []string{"alice"}, refreshed)

	current, ok := f.raw(t, "se_current")
	assert.True(t, ok)
	assert.Equal(t, "alice", current)
}

func TestAuthService_LoginUser_Rejected(t *testing.T) {
	f := newMemoryFixture(t)
	_, err := f.auth.RegisterUser(f.ctx, "alice", "pw")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"empty username", "", "pw", models.ErrInvalidInput},
		{"empty password", "alice", "", models.ErrInvalidInput},
		{"unknown user", "bob", "pw", models.ErrInvalidCredentials},
		{"wrong password", "alice", "nope", models.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.auth.LoginUser(f.ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.auth.CurrentUser())
		})
	}
}

func TestAuthService_LoginUser_UpgradesLegacyPassword(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "se_users", `{"alice":{"password":"pw","bio":"","pic":"","stats":{"posts":0,"likes":0,"comments":0}}}`))
	f := newFixture(t, store, state.SavedPerUser)

	assert.ErrorIs(t, f.auth.LoginUser(ctx, "alice", "wrong"), models.ErrInvalidCredentials)
	require.NoError(t, f.auth.LoginUser(ctx, "alice", "pw"))

	hashed := f.user(t, "alice").Password
	assert.NotEqual(t, "pw", hashed)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("pw")))

	raw, _ := f.raw(t, "se_users")
	assert.NotContains(t, raw, `"password":"pw"`)
}

func TestAuthService_Logout(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")

	done, err := f.auth.Logout(f.ctx, func() bool { return false })
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "alice", f.auth.CurrentUser())

	done, err = f.auth.Logout(f.ctx, func() bool { return true })
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, f.auth.CurrentUser())
	_, ok := f.raw(t, "se_current")
	assert.False(t, ok)

	_, err = f.auth.Logout(f.ctx, nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestAuthService_Logout_ConfirmCanReadState(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "alice")

	type result struct {
		done bool
		err  error
	}
	results := make(chan result, 1)
	var asked string
	go func() {
		done, err := f.auth.Logout(f.ctx, func() bool {
			asked = f.auth.CurrentUser()
			return true
		})
		results <- result{done, err}
	}()

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.True(t, r.done)
	case <-time.After(5 * time.Second):
		t.Fatal("logout blocked while asking for confirmation")
	}
	assert.Equal(t, "alice", asked)
	assert.Empty(t, f.auth.CurrentUser())
}

func TestAuthService_Logout_SessionChangedWhileConfirming(t *testing.T) {
	f := newMemoryFixture(t)
	f.signIn(t, "bob")
	f.signIn(t, "alice")

	done, err := f.auth.Logout(f.ctx, func() bool {
		require.NoError(t, f.auth.LoginUser(f.ctx, "bob", "pw"))
		return true
	})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.False(t, done)
	assert.Equal(t, "bob", f.auth.CurrentUser())
}

func TestAuthService_RequireSession(t *testing.T) {
	f := newMemoryFixture(t)

	_, err := f.auth.RequireSession()
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	f.signIn(t, "alice")
	username, err := f.auth.RequireSession()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestAuthService_RegisterUser_FlushFailureLeavesNoUser(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failKey: "se_users"}
	f := newFixture(t, store, state.SavedPerUser)

	_, err := f.auth.RegisterUser(f.ctx, "alice", "pw")
	require.Error(t, err)

	f.state.Lock()
	defer f.state.Unlock()
	assert.NotContains(t, f.state.Users, "alice")
}
