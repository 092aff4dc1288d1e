package cache

import (
	"context"
	"testing"

	"Bpsb/config"
	"Bpsb/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisConfig(t *testing.T) (*miniredis.Miniredis, *config.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, &config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()}
}

func TestConnectRedisAndSelfCheck(t *testing.T) {
	ctx := context.Background()
	mr, cfg := newMiniredisConfig(t)

	client, err := ConnectRedis(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, TestRedis(ctx, client))
	assert.False(t, mr.Exists("bpsb:test_key"), "self-check cleans up")
}

func TestConnectRedisGivesUpWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectRedis(ctx, &config.Config{RedisHost: "127.0.0.1", RedisPort: "1"})
	assert.Error(t, err)
}

func TestRedisKVStore(t *testing.T) {
	ctx := context.Background()
	mr, cfg := newMiniredisConfig(t)

	client, err := ConnectRedis(ctx, cfg)
	require.NoError(t, err)
	s := NewRedisKVStore(client, "bpsb:")
	defer s.Close()

	_, err = s.Get(ctx, "bpsb-users")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "bpsb-users", `{"alice":{}}`))
	got, err := mr.Get("bpsb:bpsb-users")
	require.NoError(t, err)
	assert.Equal(t, `{"alice":{}}`, got, "keys are prefixed")

	v, err := s.Get(ctx, "bpsb-users")
	require.NoError(t, err)
	assert.Equal(t, `{"alice":{}}`, v)

	require.NoError(t, s.Delete(ctx, "bpsb-users"))
	_, err = s.Get(ctx, "bpsb-users")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestRedisKVStoreBacksAccountRepository(t *testing.T) {
	ctx := context.Background()
	_, cfg := newMiniredisConfig(t)

	client, err := ConnectRedis(ctx, cfg)
	require.NoError(t, err)
	repo := repository.NewKVAccountRepository(NewRedisKVStore(client, ""), "bpsb-users", "bpsb-current")

	require.NoError(t, repo.SaveSession(ctx, "alice"))
	name, err := repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	require.NoError(t, repo.ClearSession(ctx))
	name, err = repo.LoadSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}
