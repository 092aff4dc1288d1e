package repository

import (
	"context"
	"testing"
	"time"

	"Bpsb/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVAccountRepositoryEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewKVAccountRepository(NewMemoryKVStore(), "users", "current")

	dir, err := repo.LoadDirectory(ctx)
	require.NoError(t, err)
	assert.NotNil(t, dir)
	assert.Empty(t, dir)

	name, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, repo.ClearSession(ctx), "clearing a missing marker")
}

func TestKVAccountRepositoryDirectory(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	repo := NewKVAccountRepository(kv, "users", "current")

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := AccountDirectory{
		"alice": {ID: "id-1", Username: "alice", Email: "a@x.io", Theme: "system",
			Playlists: []string{}, Following: []string{"bob"}, CreatedAt: created, PasswordHash: "h"},
	}
	require.NoError(t, repo.SaveDirectory(ctx, in))

	raw, err := kv.Get(ctx, "users")
	require.NoError(t, err)
	assert.Contains(t, raw, `"alice"`)

	out, err := repo.LoadDirectory(ctx)
	require.NoError(t, err)
	require.Contains(t, out, "alice")
	assert.Equal(t, in["alice"], out["alice"])
}

func TestKVAccountRepositoryDropsNullEntries(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, "users", `{"alice":{"username":"alice"},"ghost":null}`))

	dir, err := NewKVAccountRepository(kv, "users", "current").LoadDirectory(ctx)
	require.NoError(t, err)
	assert.Len(t, dir, 1)
	assert.Equal(t, &model.Account{Username: "alice"}, dir["alice"])
}

func TestKVAccountRepositoryCorruptDirectory(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore()
	require.NoError(t, kv.Set(ctx, "users", "[1,2"))

	_, err := NewKVAccountRepository(kv, "users", "current").LoadDirectory(ctx)
	assert.Error(t, err)
}

func TestKVAccountRepositorySession(t *testing.T) {
	ctx := context.Background()
	repo := NewKVAccountRepository(NewMemoryKVStore(), "users", "current")

	require.NoError(t, repo.SaveSession(ctx, "alice"))
	name, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	require.NoError(t, repo.ClearSession(ctx))
	name, err = repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}
