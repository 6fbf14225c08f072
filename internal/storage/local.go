package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore keeps objects on the local filesystem, for development and
// tests. URLs are file:// paths.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write file %s: %w", full, err)
	}
	return s.URL(path), nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file %s: %w", full, err)
	}
	return nil
}

func (s *LocalStore) URL(path string) string {
	abs, err := filepath.Abs(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	if err != nil {
		abs = filepath.Join(s.baseDir, filepath.FromSlash(path))
	}
	return "file://" + filepath.ToSlash(abs)
}
