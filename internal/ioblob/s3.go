package ioblob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/horizonml/horizon/pkg/blob"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// s3Store keeps artifacts in an S3-compatible bucket with a
// write-through local cache. Reads fall back to the cache when the
// remote is unreachable, so a trained model stays scorable offline.
type s3Store struct {
	client *minio.Client
	bucket string
	cache  blob.Store
	log    *slog.Logger
}

// NewS3Store connects to the configured endpoint. cacheDir holds the
// local copies.
func NewS3Store(cfg config.BlobConfig, cacheDir string, log *slog.Logger) (blob.Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to blob endpoint %s: %w", cfg.Endpoint, err)
	}
	cache, err := NewLocalStore(cacheDir)
	if err != nil {
		return nil, err
	}
	return &s3Store{
		client: client,
		bucket: cfg.Bucket,
		cache:  cache,
		log:    log,
	}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(
		ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return "", &errs.ArtifactError{Ref: key, Op: "put", Err: err}
	}

	// Cache failures are not fatal; the remote copy is authoritative.
	if _, err := s.cache.Put(ctx, key, data); err != nil {
		s.log.Warn("could not cache artifact locally", "key", key, "error", err)
	}
	return s3Scheme + s.bucket + "/" + key, nil
}

func (s *s3Store) Get(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := splitS3Ref(ref)
	if err != nil {
		return nil, err
	}

	obj, remoteErr := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if remoteErr == nil {
		data, readErr := io.ReadAll(obj)
		obj.Close()
		if readErr == nil {
			return data, nil
		}
		remoteErr = readErr
	}

	s.log.Warn("remote artifact fetch failed, trying local cache",
		"ref", ref, "error", remoteErr)
	data, cacheErr := s.cache.Get(ctx, localScheme+key)
	if cacheErr != nil {
		return nil, &errs.ArtifactError{Ref: ref, Op: "get", Err: remoteErr}
	}
	return data, nil
}

func (s *s3Store) Delete(ctx context.Context, ref string) error {
	bucket, key, err := splitS3Ref(ref)
	if err != nil {
		return err
	}
	err = s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return &errs.ArtifactError{Ref: ref, Op: "delete", Err: err}
	}
	if err := s.cache.Delete(ctx, localScheme+key); err != nil {
		s.log.Warn("could not drop cached artifact", "ref", ref, "error", err)
	}
	return nil
}

func splitS3Ref(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, s3Scheme)
	if !ok {
		return "", "", &errs.ArtifactError{
			Ref: ref, Op: "get",
			Err: fmt.Errorf("not an s3 reference"),
		}
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", &errs.ArtifactError{
			Ref: ref, Op: "get",
			Err: fmt.Errorf("malformed s3 reference"),
		}
	}
	return bucket, key, nil
}

// NewStore picks the store implied by configuration: S3 when an
// endpoint is set, otherwise local-only.
func NewStore(cfg *config.Config, log *slog.Logger) (blob.Store, error) {
	cacheDir := config.CacheDir(cfg.HomeDir)
	if cfg.Blob.Endpoint == "" {
		return NewLocalStore(cacheDir)
	}
	return NewS3Store(cfg.Blob, cacheDir, log)
}
