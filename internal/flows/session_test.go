package flows

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	token, user, err := store.Load()
	require.NoError(t, err, "a missing file is an empty session")
	assert.Empty(t, token)
	assert.Nil(t, user)

	saved := models.User{ID: uuid.New(), Name: "Sita", Email: "sita@example.com", Role: models.RoleAdmin}
	require.NoError(t, store.Save("abc123", &saved))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, TokenKey)
	assert.Contains(t, raw, UserKey)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, user, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	require.NotNil(t, user)
	assert.Equal(t, saved.ID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	token, user, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewSession(NewFileStore(path))
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	session, err := NewSession(store)
	require.NoError(t, err)
	assert.False(t, session.IsAuthenticated())
	assert.Equal(t, models.RoleRegularUser, session.Role())

	var events []Event
	unsubscribe := session.Subscribe(func(e Event) { events = append(events, e) })

	user := models.User{ID: uuid.New(), Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, session.Login("tok", user))
	assert.True(t, session.IsAuthenticated())
	assert.Equal(t, "tok", session.Token())
	assert.Equal(t, models.RoleAdmin, session.Role())

	user.Name = "Renamed"
	require.NoError(t, session.UpdateProfile(user))
	got, ok := session.User()
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "tok", session.Token(), "profile updates keep the token")

	require.NoError(t, session.Logout())
	assert.False(t, session.IsAuthenticated())
	_, ok = session.User()
	assert.False(t, ok)

	require.Len(t, events, 3)
	assert.Equal(t, EventLogin, events[0].Kind)
	assert.Equal(t, EventProfileUpdated, events[1].Kind)
	assert.Equal(t, "Renamed", events[1].User.Name)
	assert.Equal(t, EventLogout, events[2].Kind)
	assert.Nil(t, events[2].User)

	unsubscribe()
	unsubscribe()
	require.NoError(t, session.Login("tok2", user))
	assert.Len(t, events, 3, "unsubscribed handlers are not called")

	t.Run("Reload from store", func(t *testing.T) {
		reloaded, err := NewSession(store)
		require.NoError(t, err)
		assert.Equal(t, "tok2", reloaded.Token())
	})

	t.Run("Empty token refused", func(t *testing.T) {
		assert.Error(t, session.Login("", user))
	})
}

func TestSessionUpdateProfileNeedsLogin(t *testing.T) {
	session := anonymousSession(t)
	assert.Error(t, session.UpdateProfile(models.User{Name: "x"}))
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		session func(t *testing.T) *Session
		roles   []models.Role
		want    Access
	}{
		{"Anonymous any route", anonymousSession, nil, Access{Redirect: RouteLogin}},
		{"Anonymous admin route", anonymousSession, []models.Role{models.RoleAdmin}, Access{Redirect: RouteLogin}},
		{"User any route", func(t *testing.T) *Session { return loggedInSession(t, models.RoleRegularUser) }, nil, Access{Allowed: true}},
		{"User admin route", func(t *testing.T) *Session { return loggedInSession(t, models.RoleRegularUser) }, []models.Role{models.RoleAdmin}, Access{Redirect: RouteHome}},
		{"Admin admin route", func(t *testing.T) *Session { return loggedInSession(t, models.RoleAdmin) }, []models.Role{models.RoleAdmin}, Access{Allowed: true}},
		{"Admin user route", func(t *testing.T) *Session { return loggedInSession(t, models.RoleAdmin) }, []models.Role{models.RoleRegularUser}, Access{Redirect: RouteHome}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewGuard(tt.session(t)).Check(tt.roles...))
		})
	}

	assert.Equal(t, RouteAdminDashboard, LandingRoute(models.RoleAdmin))
	assert.Equal(t, RouteUserDashboard, LandingRoute(models.RoleRegularUser))
}
