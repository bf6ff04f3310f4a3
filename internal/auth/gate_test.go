package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkdindustries/warden/internal/config"
	"pkdindustries/warden/internal/identity"
	"pkdindustries/warden/internal/roster"
)

func testGate(t *testing.T) (*Gate, *roster.Table, *identity.Store) {
	t.Helper()
	store, err := identity.NewStore(t.TempDir())
	require.NoError(t, err)
	table := roster.NewTable()
	cfg := &config.Configuration{
		Bot:  &config.BotConfig{AdminOverride: "overlord"},
		Auth: &config.AuthConfig{LoginPenalty: 20 * time.Second},
	}
	return NewGate(store, table, cfg), table, store
}

// resolve simulates WHO resolution: the session exists with a hostmask and a
// fresh unregistered identity bound.
func resolve(table *roster.Table, nick, hostmask string) {
	table.Observe(nick)
	table.SetHostmask(nick, hostmask)
	table.Bind(nick, identity.New(nick))
}

func TestRegisterSelfOnly(t *testing.T) {
	gate, table, _ := testGate(t)
	resolve(table, "alice", "a@example.com")

	err := gate.Register("alice", "bob", "secret")
	assert.ErrorIs(t, err, ErrSelfOnly)
}

func TestRegisterBeforeResolution(t *testing.T) {
	gate, _, _ := testGate(t)

	err := gate.Register("ghost", "ghost", "secret")
	assert.ErrorIs(t, err, ErrNotYetResolved)
}

func TestRegisterAndDuplicate(t *testing.T) {
	gate, table, store := testGate(t)
	resolve(table, "alice", "a@example.com")

	require.NoError(t, gate.Register("alice", "alice", "secret"))

	saved, err := store.Load("alice")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.MatchPassword("secret"))

	// A second register must not replace the stored hash.
	err = gate.Register("alice", "alice", "other")
	assert.ErrorIs(t, err, ErrAccountRegistered)

	saved, err = store.Load("alice")
	require.NoError(t, err)
	assert.True(t, saved.MatchPassword("secret"))
	assert.False(t, saved.MatchPassword("other"))
}

func TestLoginSuccessRecordsHostmask(t *testing.T) {
	gate, table, store := testGate(t)

	id := identity.New("alice")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))

	// Fresh connection from a new host with an empty hostmask set on record.
	table.Observe("alice")
	table.SetHostmask("alice", "a@new.example.com")
	table.Bind("alice", identity.New("alice"))

	require.NoError(t, gate.Login("alice", "alice", "secret"))

	s, ok := table.Get("alice")
	require.True(t, ok)
	assert.True(t, s.LoggedIn())
	assert.True(t, s.PenaltyUntil.IsZero(), "success clears the penalty")

	saved, err := store.Load("alice")
	require.NoError(t, err)
	assert.True(t, saved.HasHostmask("a@new.example.com"))
}

func TestLoginBadPasswordSetsPenalty(t *testing.T) {
	gate, table, store := testGate(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return t0 }

	id := identity.New("alice")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))
	resolve(table, "alice", "a@example.com")

	err := gate.Login("alice", "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredential)

	s, _ := table.Get("alice")
	assert.Equal(t, t0.Add(20*time.Second), s.PenaltyUntil)
}

func TestLoginThrottleExtendsFromAttemptTime(t *testing.T) {
	gate, table, store := testGate(t)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	gate.now = func() time.Time { return now }

	id := identity.New("alice")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))
	resolve(table, "alice", "a@example.com")

	require.ErrorIs(t, gate.Login("alice", "alice", "wrong"), ErrBadCredential)

	// Retrying five seconds later, still inside the window, is throttled
	// without the password being checked, and the deadline restarts from the
	// second attempt.
	now = t0.Add(5 * time.Second)
	err := gate.Login("alice", "alice", "secret")
	assert.ErrorIs(t, err, ErrThrottled)

	s, _ := table.Get("alice")
	assert.Equal(t, t0.Add(25*time.Second), s.PenaltyUntil)

	// Once the window passes the correct password works.
	now = t0.Add(46 * time.Second)
	assert.NoError(t, gate.Login("alice", "alice", "secret"))
}

func TestLoginAlreadyLoggedIn(t *testing.T) {
	gate, table, store := testGate(t)

	id := identity.New("alice")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))
	resolve(table, "alice", "a@example.com")

	require.NoError(t, gate.Login("alice", "alice", "secret"))
	assert.ErrorIs(t, gate.Login("alice", "alice", "secret"), ErrAlreadyLoggedIn)
}

func TestLoginUnknownUsername(t *testing.T) {
	gate, table, _ := testGate(t)
	resolve(table, "alice", "a@example.com")

	err := gate.Login("alice", "nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestLoginAdminFlagGrantsLiveAdmin(t *testing.T) {
	gate, table, store := testGate(t)

	id := identity.New("alice")
	id.PasswordHash = identity.HashPassword("secret")
	id.Admin = true
	require.NoError(t, store.Save(id))
	resolve(table, "alice", "a@example.com")

	require.NoError(t, gate.Login("alice", "alice", "secret"))
	assert.True(t, table.IsAdmin("alice"))
}

func TestLoginOverrideNickGrantsLiveAdmin(t *testing.T) {
	gate, table, store := testGate(t)

	id := identity.New("overlord")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))
	resolve(table, "overlord", "o@example.com")

	require.NoError(t, gate.Login("overlord", "overlord", "secret"))
	assert.True(t, table.IsAdmin("overlord"))
}

func TestCheckHostmask(t *testing.T) {
	gate, _, _ := testGate(t)

	id := identity.New("alice")
	assert.NoError(t, gate.CheckHostmask(id, "anything@anywhere"), "empty set accepts all")

	id.AddHostmask("a@example.com")
	assert.NoError(t, gate.CheckHostmask(id, "a@example.com"))
	assert.ErrorIs(t, gate.CheckHostmask(id, "a@elsewhere"), ErrUnknownHostmask)
}

func TestSetAdminPersists(t *testing.T) {
	gate, _, store := testGate(t)

	id := identity.New("bob")
	id.PasswordHash = identity.HashPassword("secret")
	require.NoError(t, store.Save(id))

	require.NoError(t, gate.SetAdmin(id, true))

	saved, err := store.Load("bob")
	require.NoError(t, err)
	assert.True(t, saved.Admin)

	require.NoError(t, gate.SetAdmin(id, false))
	saved, err = store.Load("bob")
	require.NoError(t, err)
	assert.False(t, saved.Admin)
}

func TestHibernateSkipsUnregistered(t *testing.T) {
	gate, table, store := testGate(t)
	resolve(table, "drifter", "d@example.com")

	s, ok := table.Drop("drifter")
	require.True(t, ok)
	gate.Hibernate(s)

	saved, err := store.Load("drifter")
	require.NoError(t, err)
	assert.Nil(t, saved, "unregistered identities never reach the archive")
}
