package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rankly/pkg/resource"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Root == "" {
		cfg.Root = t.TempDir()
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{Root: file})
	assert.ErrorContains(t, err, "not a directory")
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})
	writeFile(t, s.Root(), "polls/1/cover.png", []byte("png-bytes"))

	t.Run("NestedKey", func(t *testing.T) {
		data, err := s.Fetch(ctx, "polls/1/cover.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.Fetch(ctx, "polls/2/cover.png")
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("DirectoryIsNotFound", func(t *testing.T) {
		_, err := s.Fetch(ctx, "polls/1")
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("RejectsTraversal", func(t *testing.T) {
		for _, key := range []string{"", "../secret", "polls/../../secret", "/etc/passwd", "."} {
			_, err := s.Fetch(ctx, key)
			assert.ErrorIs(t, err, resource.ErrInvalidKey, "key %q", key)
		}
	})
}

func TestMaxObjectSize(t *testing.T) {
	s := newTestStore(t, Config{MaxObjectSize: 4})
	writeFile(t, s.Root(), "big.png", []byte("12345"))

	_, err := s.Fetch(context.Background(), "big.png")
	assert.ErrorContains(t, err, "limit 4")
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})
	require.NoError(t, s.HealthCheck(ctx))
	require.NoError(t, s.Close())

	_, err := s.Fetch(ctx, "a.png")
	assert.ErrorIs(t, err, resource.ErrSourceClosed)
	assert.ErrorIs(t, s.HealthCheck(ctx), resource.ErrSourceClosed)
	assert.Equal(t, "fs", s.Type())
}
