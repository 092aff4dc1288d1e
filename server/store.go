package server

import (
	"context"
	"fmt"
	"time"

	"Bpsb/cache"
	"Bpsb/config"
	"Bpsb/db"
	"Bpsb/repository"
	"Bpsb/storage"
)

// OpenKVStore opens the account store backend selected by STORE_DRIVER.
// The returned *storage.MinioClient is non-nil whenever MinIO was initialised.
func OpenKVStore(ctx context.Context, cfg *config.Config) (repository.KVStore, *storage.MinioClient, error) {
	switch cfg.StoreDriver {
	case "file", "":
		s, err := storage.NewFileKVStore(cfg.StoreFile)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "memory":
		return repository.NewMemoryKVStore(), nil, nil
	case "redis":
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisKVStore(client, "bpsb:"), nil, nil
	case "gorm":
		gdb, err := db.OpenGorm(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		s, err := db.NewGormKVStore(gdb)
		if err != nil {
			db.CloseGorm(gdb)
			return nil, nil, err
		}
		return s, nil, nil
	case "minio":
		m, err := storage.NewMinioClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMinioKVStore(m), m, nil
	}
	return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
}

func presignTTL(cfg *config.Config) time.Duration {
	if cfg.PresignMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.PresignMinutes) * time.Minute
}
