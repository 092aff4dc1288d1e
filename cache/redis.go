package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Bpsb/config"
	"Bpsb/logger"
	"Bpsb/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
)

// ConnectRedis 初始化Redis连接，启动阶段按指数退避重试
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err := backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("Redis ping failed, retrying", logger.ErrorField(err), logger.Duration("wait", wait))
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// TestRedis 测试Redis连接和基本操作
func TestRedis(ctx context.Context, client *redis.Client) error {
	const key = "bpsb:test_key"
	const want = "Redis connection successful!"

	if err := client.Set(ctx, key, want, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}

	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != want {
		return fmt.Errorf("unexpected value from Redis: got %s", val)
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}

// RedisKVStore stores each key as a plain Redis string.
type RedisKVStore struct {
	client *redis.Client
	prefix string
}

// NewRedisKVStore wraps client; prefix namespaces every key.
func NewRedisKVStore(client *redis.Client, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

func (s *RedisKVStore) key(k string) string { return s.prefix + k }

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close 关闭Redis连接
func (s *RedisKVStore) Close() error {
	return s.client.Close()
}
