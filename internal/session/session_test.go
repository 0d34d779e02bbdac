package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-booking/internal/auth"
	"appointment-booking/internal/store"
)

const testSecret = "test-secret"

func newManager(t *testing.T, layout Layout) (*Manager, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return New(st, Options{
		Secret: testSecret,
		TTL:    time.Hour,
		Layout: layout,
		Logger: zerolog.Nop(),
	}), st
}

// brokenStore fails every call the way an unreachable backend would.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("%w: disk gone", store.ErrUnavailable)
}
func (brokenStore) Set(context.Context, string, string) error {
	return fmt.Errorf("%w: disk gone", store.ErrUnavailable)
}
func (brokenStore) SetNX(context.Context, string, string) (bool, error) {
	return false, fmt.Errorf("%w: disk gone", store.ErrUnavailable)
}
func (brokenStore) Ping(context.Context) error { return store.ErrUnavailable }
func (brokenStore) Close() error               { return nil }

func TestSignUpLoginGate(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)

	sess, err := m.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.ExpiresAt.After(sess.IssuedAt))

	gated, err := m.RequireAuthenticated(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", gated.Username)

	user, ok, err := m.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestSignUpDuplicate(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = m.SignUp(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// the first password is still the one that works
	_, err = m.Login(ctx, "alice", "pw1")
	assert.NoError(t, err)
	_, err = m.Login(ctx, "alice", "pw2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpMultipleAccounts(t *testing.T) {
	m, st := newManager(t, LayoutKeyed)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = m.SignUp(ctx, "bob", "pw2")
	require.NoError(t, err)

	_, err = m.Login(ctx, "alice", "pw1")
	assert.NoError(t, err)
	_, err = m.Login(ctx, "bob", "pw2")
	assert.NoError(t, err)

	hash, ok, _ := st.Get(ctx, "identity:alice")
	require.True(t, ok)
	assert.NotEqual(t, "pw1", hash)
}

func TestSignUpValidation(t *testing.T) {
	m, st := newManager(t, LayoutKeyed)
	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"empty username", "", "pw", ErrInvalidUsername},
		{"colon", "identity:bob", "pw", ErrInvalidUsername},
		{"space", "al ice", "pw", ErrInvalidUsername},
		{"too long", string(make([]byte, 65)), "pw", ErrInvalidUsername},
		{"empty password", "alice", "", ErrInvalidPassword},
		{"password over 72 bytes", "alice", strings.Repeat("x", 73), ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignUp(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, st.Len())
}

func TestSignUpLongestPassword(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()
	pw := strings.Repeat("x", 72)

	_, err := m.SignUp(ctx, "alice", pw)
	require.NoError(t, err)
	_, err = m.Login(ctx, "alice", pw)
	assert.NoError(t, err)
	_, err = m.Login(ctx, "alice", pw+"y")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginCredentialExactness(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()
	_, err := m.SignUp(ctx, "a", "y")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "a", "x"},
		{"password prefix", "a", ""},
		{"case differs", "A", "y"},
		{"unknown user", "nobody", "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRequireAuthenticatedRejects(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()

	// no identity created yet
	_, err := m.RequireAuthenticated(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// well-signed token for an identity that was never created
	forged, _, err := auth.MakeToken("ghost", testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = m.RequireAuthenticated(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.RequireAuthenticated(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	user, ok, err := m.CurrentUser(ctx, forged)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, user)
}

func TestExpiredSession(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()
	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	sess, err := m.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = m.RequireAuthenticated(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAccountExistsIsNotAuthentication(t *testing.T) {
	m, _ := newManager(t, LayoutKeyed)
	ctx := context.Background()
	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)

	exists, err := m.AccountExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, ok, err := m.CurrentUser(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLegacyLayoutOverwrites(t *testing.T) {
	m, st := newManager(t, LayoutLegacy)
	ctx := context.Background()

	_, err := m.SignUp(ctx, "alice", "pw1")
	require.NoError(t, err)
	v, _, _ := st.Get(ctx, "username")
	assert.Equal(t, "alice", v)
	v, _, _ = st.Get(ctx, "password")
	assert.Equal(t, "pw1", v)

	aliceSess, err := m.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	// single slot: the second sign-up replaces the first account
	_, err = m.SignUp(ctx, "bob", "pw2")
	require.NoError(t, err)

	_, err = m.Login(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Login(ctx, "bob", "pw2")
	assert.NoError(t, err)

	_, err = m.RequireAuthenticated(ctx, aliceSess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStoreUnavailablePropagates(t *testing.T) {
	m := New(brokenStore{}, Options{Secret: testSecret, Logger: zerolog.Nop()})
	ctx := context.Background()

	_, err := m.SignUp(ctx, "alice", "pw1")
	assert.True(t, errors.Is(err, store.ErrUnavailable))

	_, err = m.Login(ctx, "alice", "pw1")
	assert.True(t, errors.Is(err, store.ErrUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))

	tok, _, _ := auth.MakeToken("alice", testSecret, time.Hour, time.Now())
	_, err = m.RequireAuthenticated(ctx, tok)
	assert.True(t, errors.Is(err, store.ErrUnavailable))
	assert.False(t, errors.Is(err, ErrUnauthenticated))
}
