// Package ioblob implements the blob.Store contract: an S3-compatible
// remote store with a write-through local cache, and a purely local
// store used when no endpoint is configured.
//
// References are prefixed with their scheme ("local:" or "s3:") so a
// Model row always records which store its artifact resolves through.
package ioblob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/horizonml/horizon/pkg/blob"
	"github.com/horizonml/horizon/pkg/errs"
)

const (
	localScheme = "local:"
	s3Scheme    = "s3:"
)

type localStore struct {
	dir string
}

// NewLocalStore creates a store that keeps artifacts under dir.
func NewLocalStore(dir string) (blob.Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &errs.ArtifactError{Ref: key, Op: "put", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &errs.ArtifactError{Ref: key, Op: "put", Err: err}
	}
	return localScheme + key, nil
}

func (s *localStore) Get(_ context.Context, ref string) ([]byte, error) {
	key, ok := strings.CutPrefix(ref, localScheme)
	if !ok {
		return nil, &errs.ArtifactError{
			Ref: ref, Op: "get",
			Err: fmt.Errorf("not a local reference"),
		}
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil {
		return nil, &errs.ArtifactError{Ref: ref, Op: "get", Err: err}
	}
	return data, nil
}

func (s *localStore) Delete(_ context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, localScheme)
	if !ok {
		return &errs.ArtifactError{
			Ref: ref, Op: "delete",
			Err: fmt.Errorf("not a local reference"),
		}
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return &errs.ArtifactError{Ref: ref, Op: "delete", Err: err}
	}
	return nil
}
