// Package fs provides a resource source backed by files under a root
// directory. Keys are slash-separated paths relative to the root.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/rankly/pkg/resource"
)

// Config holds configuration for the filesystem source.
type Config struct {
	// Root is the directory resources are read from.
	Root string

	// MaxObjectSize rejects files larger than this many bytes. Zero disables
	// the check.
	MaxObjectSize int64
}

// Store reads resources from disk.
type Store struct {
	mu     sync.RWMutex
	root   string
	maxLen int64
	closed bool
}

// New opens a store rooted at cfg.Root, which must be an existing directory.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("fs source: root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fs source: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fs source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs source: %s is not a directory", root)
	}
	return &Store{root: root, maxLen: cfg.MaxObjectSize}, nil
}

// resolve maps key to a path inside the root. Absolute keys and keys that
// climb out of the root are rejected.
func (s *Store) resolve(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || strings.HasPrefix(key, "/") || !filepath.IsLocal(rel) || filepath.Clean(rel) == "." {
		return "", fmt.Errorf("%w: %q", resource.ErrInvalidKey, key)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, resource.ErrSourceClosed
	}

	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, resource.ErrNotFound
	}
	if s.maxLen > 0 && info.Size() > s.maxLen {
		return nil, fmt.Errorf("fs source: %s is %d bytes, limit %d", key, info.Size(), s.maxLen)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// HealthCheck verifies the root is still a readable directory.
func (s *Store) HealthCheck(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return resource.ErrSourceClosed
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("fs source health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fs source health check failed: %s is not a directory", s.root)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) Type() string { return "fs" }

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

var _ resource.Source = (*Store)(nil)
