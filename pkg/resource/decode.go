package resource

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Decode reads the image header of data and returns a handle for key.
// Pixels are not decoded: the cache only needs the dimensions to size the
// entry.
func Decode(key string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty content", ErrDecode, key)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid dimensions %dx%d", ErrDecode, key, cfg.Width, cfg.Height)
	}
	return NewImage(key, format, cfg.Width, cfg.Height, data), nil
}
