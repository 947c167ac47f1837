package ingest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoader_Zeta(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(3))

	f, err := NewFileLoader().Load(context.Background(), Request{Path: path, Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "zeta", f.Name)
	assert.Equal(t, 3, f.Steps())
	assert.Equal(t, []float64{2, 3, 4}, f.Row(2))
}

func TestFileLoader_WaterColumnHeight(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(3))

	f, err := NewFileLoader().Load(context.Background(), Request{Path: path, Strict: true, Elevation: true})
	require.NoError(t, err)
	assert.Equal(t, domain.WaterColumnHeightName, f.Name)
	assert.Equal(t, []float64{12, 13, 14}, f.Row(2))
}

func TestFileLoader_StrictFailure(t *testing.T) {
	path := writeRun(t, "dupes.nc", []time.Time{t0, t0})

	_, err := NewFileLoader().Load(context.Background(), Request{Path: path, Strict: true})
	var dupErr *domain.DuplicateTimestampError
	assert.ErrorAs(t, err, &dupErr)
}

func TestFileLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLoader().Load(ctx, Request{Path: "unused.nc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

// --- mock for cache tests ---

type countingLoader struct {
	calls int
	err   error
}

func (m *countingLoader) Load(_ context.Context, req Request) (*domain.Field, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return domain.NewSeries(req.Path, []time.Time{t0}, []float64{float64(m.calls)})
}

// --- CachedLoader tests ---

func TestCachedLoader_CacheHit(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(2))
	inner := &countingLoader{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedLoader(inner, 4, metrics)

	f1, err := cached.Load(context.Background(), Request{Path: path, Strict: true})
	require.NoError(t, err)
	f2, err := cached.Load(context.Background(), Request{Path: path, Strict: true})
	require.NoError(t, err)

	assert.Same(t, f1, f2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FieldCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FieldCache.WithLabelValues("miss")))
}

func TestCachedLoader_FlagsAreKeyed(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(2))
	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 4, nil)

	_, _ = cached.Load(context.Background(), Request{Path: path, Strict: true})
	_, _ = cached.Load(context.Background(), Request{Path: path, Strict: false})
	_, _ = cached.Load(context.Background(), Request{Path: path, Strict: true, Elevation: true})

	assert.Equal(t, 3, inner.calls)
}

func TestCachedLoader_RewrittenFileMisses(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(2))
	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 4, nil)

	_, err := cached.Load(context.Background(), Request{Path: path})
	require.NoError(t, err)

	// A longer run changes the file size.
	rewritten := writeRun(t, "run.nc", hourly(5))
	require.NoError(t, copyFile(rewritten, path))

	_, err = cached.Load(context.Background(), Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedLoader_ErrorsNotCached(t *testing.T) {
	path := writeRun(t, "run.nc", hourly(2))
	inner := &countingLoader{err: assert.AnError}
	cached := NewCachedLoader(inner, 4, nil)

	_, err := cached.Load(context.Background(), Request{Path: path})
	require.ErrorIs(t, err, assert.AnError)
	_, err = cached.Load(context.Background(), Request{Path: path})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.cache.size())
}

func TestCachedLoader_MissingFile(t *testing.T) {
	inner := &countingLoader{}
	cached := NewCachedLoader(inner, 4, nil)

	_, err := cached.Load(context.Background(), Request{Path: "/nonexistent/fort.63.nc"})
	assert.Error(t, err)
	assert.Zero(t, inner.calls)
}

// --- LRU cache unit tests ---

func series(name string) *domain.Field {
	f, _ := domain.NewSeries(name, []time.Time{t0}, []float64{0})
	return f
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", series("A"))
	c.put("b", series("B"))

	f, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", f.Name)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", series("A"))
	c.put("b", series("B"))
	c.put("c", series("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	f, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", f.Name)

	f, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", f.Name)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", series("A"))
	c.put("b", series("B"))
	c.get("a")
	c.put("c", series("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", series("A1"))
	c.put("a", series("A2"))

	f, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", f.Name)
	assert.Equal(t, 1, c.size())
}
