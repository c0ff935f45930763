// Package resource fetches raw resources from a Source, decodes their image
// header and stores the result in the bounded cache.
package resource

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Source when the key does not exist.
	ErrNotFound = errors.New("resource: not found")

	// ErrDecode wraps failures to recognise fetched bytes as an image.
	ErrDecode = errors.New("resource: decode failed")

	// ErrSourceClosed is returned by a Source after Close.
	ErrSourceClosed = errors.New("resource: source closed")

	// ErrInvalidKey is returned for empty keys or keys a Source cannot address.
	ErrInvalidKey = errors.New("resource: invalid key")
)

// Source is the origin of raw resource bytes.
type Source interface {
	// Fetch returns the full content stored under key, or ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// HealthCheck verifies the origin is reachable.
	HealthCheck(ctx context.Context) error

	Close() error

	// Type names the backend for logs and spans ("memory", "fs", "s3").
	Type() string
}

// Image is a decoded resource handle. Only the header is decoded; Data holds
// the fetched bytes so hosts can render or serve them.
type Image struct {
	Key    string
	Format string
	Data   []byte

	width  int
	height int
}

// NewImage builds a handle with known dimensions.
func NewImage(key, format string, width, height int, data []byte) *Image {
	return &Image{Key: key, Format: format, Data: data, width: width, height: height}
}

func (i *Image) Width() int  { return i.width }
func (i *Image) Height() int { return i.height }
