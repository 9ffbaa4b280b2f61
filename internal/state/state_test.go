package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/repositories"
	"campusfeed/internal/state"
	"campusfeed/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails writes to one key.
type flakyStore struct {
	*storage.MemoryStore
	failKey string
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	if key == s.failKey {
		return errors.New("write refused")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type recordingNotifier struct {
	calls [][]state.Collection
}

func (n *recordingNotifier) NotifyChanged(_ context.Context, collections ...state.Collection) {
	n.calls = append(n.calls, collections)
}

func newState(t *testing.T, store storage.Store, scope state.SavedScope) *state.State {
	t.Helper()
	st := state.New(repositories.NewKVRepositories(store, storage.DefaultKeys), scope)
	require.NoError(t, st.Load(context.Background()))
	return st
}

func TestLoad_SeedsCatalogOnFirstRun(t *testing.T) {
	store := storage.NewMemoryStore()
	st := newState(t, store, state.SavedPerUser)

	assert.Equal(t, models.DefaultMarketItems(), st.Market)
	_, ok, _ := store.Get(context.Background(), "se_market")
	assert.True(t, ok)
	assert.Empty(t, st.Users)
	assert.Empty(t, st.Posts)
	assert.Empty(t, st.Session)
}

func TestLoad_ReconcilesStatsAndDropsStaleSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "se_users", `{"alice":{"password":"x","bio":"","pic":"","stats":{"posts":7,"likes":-2,"comments":3}}}`))
	require.NoError(t, store.Set(ctx, "se_posts", `[{"id":1,"user":"alice","text":"hi","image":"","likedBy":["bob"],"comments":[],"createdAt":"2024-05-01T10:00:00Z","editedAt":null}]`))
	require.NoError(t, store.Set(ctx, "se_current", "ghost"))

	st := newState(t, store, state.SavedPerUser)

	assert.Equal(t, models.Stats{Posts: 1, Likes: 1, Comments: 0}, st.Users["alice"].Stats)
	assert.Empty(t, st.Session)
	_, ok, _ := store.Get(ctx, "se_current")
	assert.False(t, ok)

	raw, _, _ := store.Get(ctx, "se_users")
	assert.Contains(t, raw, `"stats":{"posts":1,"likes":1,"comments":0}`)
}

func TestRehydrate_PicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	st := newState(t, store, state.SavedPerDevice)

	// another instance writes behind our back
	other := newState(t, store, state.SavedPerDevice)
	other.Lock()
	other.Users["carol"] = &models.User{Username: "carol", Password: "x"}
	p, err := models.NewPost(5, "carol", "from elsewhere", "", time.Now())
	require.NoError(t, err)
	other.Posts = append([]*models.Post{p}, other.Posts...)
	other.Saved = []string{"m2"}
	require.NoError(t, other.Commit(ctx, state.Users, state.Posts, state.Saved))
	other.Unlock()

	require.NoError(t, st.Rehydrate(ctx))

	st.Lock()
	defer st.Unlock()
	require.Contains(t, st.Users, "carol")
	assert.Equal(t, 1, st.Users["carol"].Stats.Posts)
	require.Len(t, st.Posts, 1)
	assert.Equal(t, "from elsewhere", st.Posts[0].Text)
	assert.Equal(t, []string{"m2"}, st.Saved)
}

func TestCommit_RollsBackOnFailedFlush(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	st := newState(t, store, state.SavedPerUser)

	st.Lock()
	st.Users["alice"] = &models.User{Username: "alice", Password: "x"}
	require.NoError(t, st.Commit(ctx, state.Users))
	st.Unlock()

	store.failKey = "se_posts"
	st.Lock()
	p, err := models.NewPost(1, "alice", "doomed", "", time.Now())
	require.NoError(t, err)
	st.Posts = append(st.Posts, p)
	st.Users["alice"].Stats.Add(1, 0, 0)
	err = st.Commit(ctx, state.Users, state.Posts)
	st.Unlock()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to flush posts")

	st.Lock()
	defer st.Unlock()
	assert.Empty(t, st.Posts)
	assert.Equal(t, 0, st.Users["alice"].Stats.Posts)

	raw, _, _ := store.Get(ctx, "se_users")
	assert.Contains(t, raw, `"stats":{"posts":0,"likes":0,"comments":0}`, "users written before the failure are rewritten")
}

func TestCommit_RollsBackWhenLaterCollectionFails(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	st := newState(t, store, state.SavedPerUser)

	st.Lock()
	st.Users["alice"] = &models.User{Username: "alice", Password: "x"}
	require.NoError(t, st.Commit(ctx, state.Users))
	st.Unlock()

	store.failKey = "se_users"
	st.Lock()
	p, err := models.NewPost(1, "alice", "doomed", "", time.Now())
	require.NoError(t, err)
	st.Posts = append([]*models.Post{p}, st.Posts...)
	st.Users["alice"].Stats.Add(1, 0, 0)
	err = st.Commit(ctx, state.Posts, state.Users)
	st.Unlock()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to flush users")

	st.Lock()
	assert.Empty(t, st.Posts)
	assert.Equal(t, models.Stats{}, st.Users["alice"].Stats)
	st.Unlock()

	raw, ok, _ := store.Get(ctx, "se_posts")
	require.True(t, ok)
	assert.Equal(t, "[]", raw)

	store.failKey = ""
	reloaded := newState(t, store, state.SavedPerUser)
	assert.Empty(t, reloaded.Posts)
}

func TestCommit_FailureKeepsEarlierCommits(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	st := newState(t, store, state.SavedPerUser)

	st.Lock()
	st.Users["alice"] = &models.User{Username: "alice", Password: "x"}
	kept, err := models.NewPost(1, "alice", "kept", "", time.Now())
	require.NoError(t, err)
	st.Posts = []*models.Post{kept}
	st.Users["alice"].Stats.Add(1, 0, 0)
	require.NoError(t, st.Commit(ctx, state.Posts, state.Users))

	store.failKey = "se_users"
	st.Posts[0].ToggleLike("bob")
	st.Users["alice"].Stats.Add(0, 1, 0)
	require.Error(t, st.Commit(ctx, state.Posts, state.Users))

	require.Len(t, st.Posts, 1)
	assert.Equal(t, "kept", st.Posts[0].Text)
	assert.Empty(t, st.Posts[0].LikedBy)
	assert.Equal(t, models.Stats{Posts: 1}, st.Users["alice"].Stats)
	st.Unlock()

	raw, _, _ := store.Get(ctx, "se_posts")
	assert.Contains(t, raw, `"likedBy":[]`)
}

func TestCommit_NotifiesOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := newState(t, storage.NewMemoryStore(), state.SavedPerUser)
	n := &recordingNotifier{}
	st.SetNotifier(n)

	st.Lock()
	require.NoError(t, st.Commit(ctx, state.Users, state.Posts))
	require.NoError(t, st.SetSessionLocked(ctx, "alice"))
	st.Unlock()

	assert.Equal(t, [][]state.Collection{{state.Users, state.Posts}, {state.Session}}, n.calls)
}

func TestSavedOwnerFollowsScope(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "se_saved_items_alice", `["m1"]`))
	require.NoError(t, store.Set(ctx, "se_saved_items", `["m4"]`))

	perUser := newState(t, store, state.SavedPerUser)
	perUser.Lock()
	assert.Empty(t, perUser.Saved, "logged out users own no saved list")
	require.NoError(t, perUser.SetSessionLocked(ctx, "alice"))
	assert.Equal(t, "alice", perUser.SavedOwner())
	assert.Equal(t, []string{"m1"}, perUser.Saved)
	perUser.Unlock()

	perDevice := newState(t, store, state.SavedPerDevice)
	perDevice.Lock()
	require.NoError(t, perDevice.SetSessionLocked(ctx, "alice"))
	assert.Equal(t, "", perDevice.SavedOwner())
	assert.Equal(t, []string{"m4"}, perDevice.Saved)
	perDevice.Unlock()
}

func TestClose_FlushesUncommittedChanges(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	st := newState(t, store, state.SavedPerUser)
	n := &recordingNotifier{}
	st.SetNotifier(n)

	st.Lock()
	st.Users["alice"] = &models.User{Username: "alice", Password: "x"}
	st.Session = "alice"
	st.Unlock()

	require.NoError(t, st.Close(ctx))

	cur, _, _ := store.Get(ctx, "se_current")
	assert.Equal(t, "alice", cur)
	raw, _, _ := store.Get(ctx, "se_users")
	assert.Contains(t, raw, `"alice"`)
	assert.Equal(t, [][]state.Collection{{state.Users, state.Session}}, n.calls)
}

func TestClose_LeavesOtherInstancesWritesAlone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	a := newState(t, store, state.SavedPerDevice)
	b := newState(t, store, state.SavedPerDevice)

	b.Lock()
	b.Users["bob"] = &models.User{Username: "bob", Password: "x"}
	p, err := models.NewPost(1, "bob", "from b", "", time.Now())
	require.NoError(t, err)
	b.Posts = []*models.Post{p}
	b.Users["bob"].Stats.Add(1, 0, 0)
	b.Saved = []string{"m2"}
	require.NoError(t, b.Commit(ctx, state.Posts, state.Users, state.Saved))
	require.NoError(t, b.SetSessionLocked(ctx, "bob"))
	b.Unlock()

	n := &recordingNotifier{}
	a.SetNotifier(n)
	require.NoError(t, a.Close(ctx))
	assert.Empty(t, n.calls)

	reloaded := newState(t, store, state.SavedPerDevice)
	require.Len(t, reloaded.Posts, 1)
	assert.Equal(t, "from b", reloaded.Posts[0].Text)
	assert.Contains(t, reloaded.Users, "bob")
	assert.Equal(t, []string{"m2"}, reloaded.Saved)
	assert.Equal(t, "bob", reloaded.Session)
}
