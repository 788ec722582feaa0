// Package storage keeps attached offer documents on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
)

// ErrOutsideRoot is returned for keys that resolve outside the storage directory
var ErrOutsideRoot = errors.New("path escapes storage directory")

// DocumentStore implements port.FileStorage below a single root directory
type DocumentStore struct {
	root   string
	logger *zap.Logger
}

// NewDocumentStore creates the root directory if needed
func NewDocumentStore(root string, logger *zap.Logger) (*DocumentStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DocumentStore{root: abs, logger: logger}, nil
}

// Save writes content through a temporary file so readers never see a partial document
func (s *DocumentStore) Save(ctx context.Context, key string, content []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		s.logger.Error("Failed to store document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("store document: %w", err)
	}

	s.logger.Debug("Document stored", zap.String("key", key), zap.Int("size", len(content)))
	return nil
}

func (s *DocumentStore) Read(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", key, err)
	}
	return content, nil
}

func (s *DocumentStore) Exists(ctx context.Context, key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete is idempotent
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete document", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}

func (s *DocumentStore) GetFullPath(key string) string {
	return filepath.Join(s.root, key)
}

func (s *DocumentStore) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrOutsideRoot)
	}
	path := filepath.Join(s.root, key)
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, key)
	}
	return path, nil
}

var _ port.FileStorage = (*DocumentStore)(nil)
