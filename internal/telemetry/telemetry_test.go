package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans routes spans to an in-memory recorder for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	UseTracerProvider(tp)
	t.Cleanup(func() {
		UseTracerProvider(nil)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "rankly", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)

	prof := DefaultProfilingConfig()
	assert.False(t, prof.Enabled)
	assert.Equal(t, []string{"cpu", "alloc_space", "inuse_space"}, prof.ProfileTypes)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestNoopHelpers(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "noop")
	require.NotNil(t, newCtx)
	span.End()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("boom"))
		SetAttributes(ctx, ResourceKey("a.png"))
	})
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestLoadSpan(t *testing.T) {
	rec := recordSpans(t)
	assert.True(t, IsEnabled())

	ctx, span := StartLoadSpan(context.Background(), "polls/1.png", "queued")
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))

	fctx, fetch := StartFetchSpan(ctx, "s3", "polls/1.png", Bucket("assets"))
	RecordError(fctx, errors.New("no such key"))
	fetch.End()

	SetAttributes(ctx, Dimensions(640, 480, "png")...)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)

	fs := spans[0]
	assert.Equal(t, SpanSourceFetch, fs.Name())
	assert.Equal(t, codes.Error, fs.Status().Code)
	assert.Equal(t, spans[1].SpanContext().SpanID(), fs.Parent().SpanID())
	fa := attrMap(fs.Attributes())
	assert.Equal(t, "s3", fa[AttrStoreType].AsString())
	assert.Equal(t, "assets", fa[AttrBucket].AsString())
	assert.Equal(t, "polls/1.png", fa[AttrKey].AsString())

	ls := spans[1]
	assert.Equal(t, SpanResourceLoad, ls.Name())
	la := attrMap(ls.Attributes())
	assert.Equal(t, "polls/1.png", la[AttrResourceKey].AsString())
	assert.Equal(t, "queued", la[AttrLoadPath].AsString())
	assert.Equal(t, int64(640), la[AttrWidth].AsInt64())
	assert.Equal(t, int64(480), la[AttrHeight].AsInt64())
	assert.Equal(t, "png", la[AttrFormat].AsString())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", "inuse_space", "goroutines"})
	require.NoError(t, err)
	assert.Len(t, types, 3)

	_, err = ParseProfileTypes([]string{"cpu", "heapz"})
	assert.ErrorContains(t, err, "heapz")

	stop, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, stop())
}
