package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"Bpsb/config"
	"Bpsb/logger"
	"Bpsb/repository"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 封装了 MinIO 客户端
type MinioClient struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewMinioClient 根据配置创建 MinIO 客户端并确保存储桶存在
func NewMinioClient(ctx context.Context, cfg *config.Config) (*MinioClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	m := &MinioClient{client: client, bucketName: cfg.MinioBucket, region: cfg.MinioRegion}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinioClient) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Debug("存储桶已存在", logger.String("bucket", m.bucketName))
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("成功创建存储桶", logger.String("bucket", m.bucketName))
	return nil
}

// Bucket returns the configured bucket name.
func (m *MinioClient) Bucket() string { return m.bucketName }

// ========== KVStore ==========

const kvPrefix = "kv/"

// MinioKVStore stores each key as one object under kv/ in the bucket.
type MinioKVStore struct {
	m *MinioClient
}

// NewMinioKVStore creates a KVStore backed by MinIO objects.
func NewMinioKVStore(m *MinioClient) *MinioKVStore {
	return &MinioKVStore{m: m}
}

func (s *MinioKVStore) objectName(key string) string {
	return kvPrefix + url.PathEscape(key) + ".json"
}

func (s *MinioKVStore) Get(ctx context.Context, key string) (string, error) {
	obj, err := s.m.client.GetObject(ctx, s.m.bucketName, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object for %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", repository.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read object for %s: %w", key, err)
	}
	return string(data), nil
}

func (s *MinioKVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.m.client.PutObject(ctx, s.m.bucketName, s.objectName(key),
		strings.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put object for %s: %w", key, err)
	}
	return nil
}

func (s *MinioKVStore) Delete(ctx context.Context, key string) error {
	err := s.m.client.RemoveObject(ctx, s.m.bucketName, s.objectName(key), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to remove object for %s: %w", key, err)
	}
	return nil
}

func (s *MinioKVStore) Close() error { return nil }

// ========== 音源解析 ==========

// MinioResolver turns track sources stored in the bucket into presigned URLs.
// Accepted forms are "minio://<bucket>/<object>" and "minio:<object>";
// anything else is returned unchanged.
type MinioResolver struct {
	m   *MinioClient
	ttl time.Duration
}

// NewMinioResolver creates a resolver whose URLs expire after ttl.
func NewMinioResolver(m *MinioClient, ttl time.Duration) *MinioResolver {
	return &MinioResolver{m: m, ttl: ttl}
}

// Resolve implements audio.SourceResolver.
func (r *MinioResolver) Resolve(ctx context.Context, src string) (string, error) {
	bucket, object, ok := ParseMinioSource(src, r.m.bucketName)
	if !ok {
		return src, nil
	}
	u, err := r.m.client.PresignedGetObject(ctx, bucket, object, r.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", src, err)
	}
	return u.String(), nil
}

// ParseMinioSource splits a minio source reference into bucket and object.
func ParseMinioSource(src, defaultBucket string) (bucket, object string, ok bool) {
	switch {
	case strings.HasPrefix(src, "minio://"):
		rest := strings.TrimPrefix(src, "minio://")
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return "", "", false
		}
		return bucket, object, true
	case strings.HasPrefix(src, "minio:"):
		object := strings.TrimLeft(strings.TrimPrefix(src, "minio:"), "/")
		if object == "" || defaultBucket == "" {
			return "", "", false
		}
		return defaultBucket, object, true
	}
	return "", "", false
}
