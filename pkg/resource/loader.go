package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/internal/telemetry"
	"github.com/marmos91/rankly/pkg/cache"
)

// Store is the part of the cache the loader writes to.
type Store interface {
	Put(key string, h cache.Handle)
}

// Loader fetches, decodes and caches one resource per call. Its Load method
// satisfies scheduler.Loader.
type Loader struct {
	source Source
	store  Store
}

// NewLoader returns a loader writing into store.
func NewLoader(source Source, store Store) *Loader {
	return &Loader{source: source, store: store}
}

// Load fetches key, decodes its header and puts the handle in the cache.
// Nothing is cached when either step fails.
func (l *Loader) Load(ctx context.Context, key string) (err error) {
	if key == "" {
		return ErrInvalidKey
	}

	lc := logger.FromContext(ctx)
	path := ""
	if lc != nil {
		path = lc.Path
	}
	ctx, span := telemetry.StartLoadSpan(ctx, key, path)
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	start := time.Now()
	data, err := l.fetch(ctx, key)
	if err != nil {
		return err
	}

	_, dspan := telemetry.StartSpan(ctx, telemetry.SpanDecode)
	img, err := Decode(key, data)
	dspan.End()
	if err != nil {
		return err
	}
	telemetry.SetAttributes(ctx, telemetry.Dimensions(img.Width(), img.Height(), img.Format)...)

	l.store.Put(key, img)

	logger.DebugCtx(ctx, "Resource decoded",
		logger.KeyResourceKey, key,
		logger.KeyWidth, img.Width(),
		logger.KeyHeight, img.Height(),
		logger.KeyFormat, img.Format,
		logger.Bytes(uint64(len(data))),
		logger.KeyDurationMs, time.Since(start).Milliseconds())
	return nil
}

func (l *Loader) fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, span := telemetry.StartFetchSpan(ctx, l.source.Type(), key)
	defer span.End()

	data, err := l.source.Fetch(ctx, key)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("fetch %s from %s: %w", key, l.source.Type(), err)
	}
	return data, nil
}
