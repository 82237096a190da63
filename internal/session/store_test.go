package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "test", time.Hour, zerolog.Nop()), server
}

func TestBindStoresHashedTokenAndProfile(t *testing.T) {
	store, server := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Bind(ctx, "raw-token", models.User{ID: "u1", Name: "Ana", Level: 3}))

	require.False(t, server.Exists("test:session:raw-token"), "raw tokens must not be stored")
	require.True(t, server.Exists("test:session:"+HashToken("raw-token")))

	userID, err := store.UserID(ctx, "raw-token")
	require.NoError(t, err)
	require.Equal(t, "u1", userID)

	profile, err := store.Profile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ana", profile.Name)
}

func TestDropForgetsSessionButKeepsPreferences(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	open := true

	require.NoError(t, store.Bind(ctx, "tok", models.User{ID: "u1"}))
	_, err := store.UpdatePreferences(ctx, "u1", PreferencesPatch{SidebarOpen: &open})
	require.NoError(t, err)

	require.NoError(t, store.Drop(ctx, "tok"))

	_, err = store.UserID(ctx, "tok")
	require.ErrorIs(t, err, ErrNoSession)
	_, err = store.Profile(ctx, "u1")
	require.ErrorIs(t, err, ErrNoSession)

	prefs, err := store.Preferences(ctx, "u1")
	require.NoError(t, err)
	require.True(t, prefs.SidebarOpen)
}

func TestPreferencesDefaultClosed(t *testing.T) {
	store, _ := newTestStore(t)

	prefs, err := store.Preferences(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, Preferences{}, prefs)
}

func TestConcurrentTogglesAreSerialised(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdatePreferences(ctx, "u1", PreferencesPatch{Toggle: "collapsed"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	prefs, err := store.Preferences(ctx, "u1")
	require.NoError(t, err)
	require.False(t, prefs.SidebarCollapsed, "an even number of toggles ends where it started")
}

func TestPatchAppliesValuesBeforeToggle(t *testing.T) {
	open := true
	prefs := PreferencesPatch{SidebarOpen: &open, Toggle: "sidebar"}.Apply(Preferences{})
	require.False(t, prefs.SidebarOpen)
}
