package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"Bpsb/core/auth"
	"Bpsb/model"
	"Bpsb/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	usersKey   = "bpsb-users"
	sessionKey = "bpsb-current"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fastHash(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
	return string(b), err
}

type fixture struct {
	kv   repository.KVStore
	repo repository.AccountRepository
}

func newFixture() *fixture {
	kv := repository.NewMemoryKVStore()
	return &fixture{kv: kv, repo: repository.NewKVAccountRepository(kv, usersKey, sessionKey)}
}

func (f *fixture) open(t *testing.T) *Store {
	t.Helper()
	n := 0
	return New(context.Background(), f.repo,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithPasswordHasher(fastHash),
	)
}

func (f *fixture) raw(t *testing.T, key string) string {
	t.Helper()
	v, err := f.kv.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func TestSignupCreatesAccountAndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	acc, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)

	assert.Equal(t, "id-1", acc.ID)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, "a@x.io", acc.Email)
	assert.Equal(t, model.DefaultTheme, acc.Theme)
	assert.Empty(t, acc.Playlists)
	assert.Empty(t, acc.Following)
	assert.Equal(t, fixedNow, acc.CreatedAt)
	assert.Empty(t, acc.PasswordHash, "hash never leaves the store")

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", cur.Username)
	assert.Equal(t, "alice", f.raw(t, sessionKey))

	dir, err := f.repo.LoadDirectory(ctx)
	require.NoError(t, err)
	require.Contains(t, dir, "alice")
	assert.NotEqual(t, "pw1", dir["alice"].PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(dir["alice"].PasswordHash), []byte("pw1")))
}

func TestSignupRejectsTakenUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)
	before := f.raw(t, usersKey)

	_, err = s.Signup(ctx, "alice", "other@x.io", "pw2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, before, f.raw(t, usersKey), "directory is untouched")

	_, err = s.Login(ctx, "alice", "pw1")
	assert.NoError(t, err, "original credential still valid")
}

func TestSignupRequiresUsernameAndPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	for _, c := range []struct{ user, pass string }{{"", "pw"}, {"   ", "pw"}, {"bob", ""}} {
		_, err := s.Signup(ctx, c.user, "", c.pass)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.False(t, s.IsLoggedIn())
	_, err := f.kv.Get(ctx, usersKey)
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	_, err := s.Signup(ctx, "alice", "", strings.Repeat("x", auth.MaxPasswordBytes+8))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
	assert.False(t, s.IsLoggedIn())

	_, err = s.Signup(ctx, "alice", "", strings.Repeat("x", auth.MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)
	_, err = s.Signup(ctx, "bob", "b@x.io", "pw2")
	require.NoError(t, err)

	t.Run("wrong password keeps session", func(t *testing.T) {
		_, err := s.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, "bob", cur.Username)
		assert.Equal(t, "bob", f.raw(t, sessionKey))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.Login(ctx, "carol", "pw1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success switches session", func(t *testing.T) {
		acc, err := s.Login(ctx, "alice", "pw1")
		require.NoError(t, err)
		assert.Equal(t, "alice", acc.Username)
		assert.Equal(t, "alice", f.raw(t, sessionKey))
	})

	t.Run("username trimmed like signup", func(t *testing.T) {
		_, err := s.Signup(ctx, " carol ", "", "pw3")
		require.NoError(t, err)
		acc, err := s.Login(ctx, "  carol\t", "pw3")
		require.NoError(t, err)
		assert.Equal(t, "carol", acc.Username)
		assert.Equal(t, "carol", f.raw(t, sessionKey))
	})
}

func TestLogoutKeepsDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)

	_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)
	before := f.raw(t, usersKey)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsLoggedIn())
	_, err = f.kv.Get(ctx, sessionKey)
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
	assert.Equal(t, before, f.raw(t, usersKey))

	require.NoError(t, s.Logout(ctx), "logout while logged out is fine")
}

func TestNewRestoresSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.open(t).Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)

	restored := f.open(t)
	cur, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", cur.Username)
	assert.Equal(t, "a@x.io", cur.Email)
}

func TestNewWithDanglingSessionStartsLoggedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.kv.Set(ctx, sessionKey, "ghost"))

	s := f.open(t)
	assert.False(t, s.IsLoggedIn())
}

func TestNewWithCorruptDirectoryStartsLoggedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.kv.Set(ctx, usersKey, "{not json"))
	require.NoError(t, f.kv.Set(ctx, sessionKey, "alice"))

	s := f.open(t)
	assert.False(t, s.IsLoggedIn())
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("without session", func(t *testing.T) {
		f := newFixture()
		s := f.open(t)
		theme := "dark"
		acc, err := s.UpdateProfile(ctx, model.ProfileUpdate{Theme: &theme})
		assert.NoError(t, err)
		assert.Nil(t, acc)
		_, err = f.kv.Get(ctx, usersKey)
		assert.ErrorIs(t, err, repository.ErrKeyNotFound)
	})

	t.Run("merges and persists", func(t *testing.T) {
		f := newFixture()
		s := f.open(t)
		_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
		require.NoError(t, err)

		theme := "dark"
		following := []string{"bob"}
		acc, err := s.UpdateProfile(ctx, model.ProfileUpdate{Theme: &theme, Following: &following})
		require.NoError(t, err)
		assert.Equal(t, "dark", acc.Theme)
		assert.Equal(t, []string{"bob"}, acc.Following)
		assert.Equal(t, "a@x.io", acc.Email, "unset fields kept")

		dir, err := f.repo.LoadDirectory(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dark", dir["alice"].Theme)
		assert.Equal(t, []string{"bob"}, dir["alice"].Following)

		cur, _ := f.open(t).Current()
		assert.Equal(t, "dark", cur.Theme)

		_, err = s.Login(ctx, "alice", "pw1")
		assert.NoError(t, err, "credential survives the update")
	})

	t.Run("unknown theme rejected", func(t *testing.T) {
		f := newFixture()
		s := f.open(t)
		_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
		require.NoError(t, err)
		before := f.raw(t, usersKey)

		theme := "neon"
		acc, err := s.UpdateProfile(ctx, model.ProfileUpdate{Theme: &theme})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Nil(t, acc)
		assert.Equal(t, before, f.raw(t, usersKey))
		cur, _ := s.Current()
		assert.Equal(t, model.DefaultTheme, cur.Theme)
	})

	t.Run("recreates missing entry", func(t *testing.T) {
		f := newFixture()
		s := f.open(t)
		_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
		require.NoError(t, err)
		require.NoError(t, f.repo.SaveDirectory(ctx, repository.AccountDirectory{}))

		avatar := "https://img/alice.png"
		_, err = s.UpdateProfile(ctx, model.ProfileUpdate{Avatar: &avatar})
		require.NoError(t, err)

		dir, err := f.repo.LoadDirectory(ctx)
		require.NoError(t, err)
		require.Contains(t, dir, "alice")
		assert.Equal(t, avatar, dir["alice"].Avatar)
	})
}

func TestReloadPicksUpExternalLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)
	_, err := s.Signup(ctx, "alice", "a@x.io", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.repo.ClearSession(ctx))
	s.Reload(ctx)
	assert.False(t, s.IsLoggedIn())
}

func TestAccountsSortedWithoutHashes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := f.open(t)
	for _, u := range []string{"carol", "alice", "bob"} {
		_, err := s.Signup(ctx, u, u+"@x.io", "pw")
		require.NoError(t, err)
	}

	list, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, u := range []string{"alice", "bob", "carol"} {
		assert.Equal(t, u, list[i].Username)
		assert.Empty(t, list[i].PasswordHash)
	}
}

type failingRepo struct {
	repository.AccountRepository
	err error
}

func (r failingRepo) SaveDirectory(context.Context, repository.AccountDirectory) error { return r.err }

func TestSignupSurfacesWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	boom := errors.New("disk full")
	s := New(ctx, failingRepo{AccountRepository: f.repo, err: boom}, WithPasswordHasher(fastHash))

	_, err := s.Signup(ctx, "alice", "", "pw")
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.IsLoggedIn())
}
