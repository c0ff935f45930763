package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrResourceKey = "resource.key"
	AttrLoadPath    = "resource.load_path"
	AttrWidth       = "resource.width"
	AttrHeight      = "resource.height"
	AttrFormat      = "resource.format"
	AttrBytes       = "resource.bytes"
	AttrStoreType   = "store.type"
	AttrBucket      = "storage.bucket"
	AttrKey         = "storage.key"
	AttrTargetID    = "visibility.target"
)

// Span names.
const (
	SpanResourceLoad = "resource.load"
	SpanSourceFetch  = "source.fetch"
	SpanDecode       = "resource.decode"
)

func ResourceKey(key string) attribute.KeyValue {
	return attribute.String(AttrResourceKey, key)
}

func LoadPath(path string) attribute.KeyValue {
	return attribute.String(AttrLoadPath, path)
}

func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Dimensions returns width, height and decoded format attributes.
func Dimensions(w, h int, format string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrWidth, w),
		attribute.Int(AttrHeight, h),
		attribute.String(AttrFormat, format),
	}
}

// StartLoadSpan starts the root span of one resource load.
func StartLoadSpan(ctx context.Context, key, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanResourceLoad, trace.WithAttributes(ResourceKey(key), LoadPath(path)))
}

// StartFetchSpan starts a span around one origin fetch.
func StartFetchSpan(ctx context.Context, storeType, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{StoreType(storeType), StorageKey(key)}, attrs...)
	return StartSpan(ctx, SpanSourceFetch, trace.WithAttributes(all...), trace.WithSpanKind(trace.SpanKindClient))
}
