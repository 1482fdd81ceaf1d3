package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/authtrail/internal/models"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocator struct {
	calls    int
	insights models.IPInsights
	err      error
}

func (l *countingLocator) Lookup(ctx context.Context, ip string) (models.IPInsights, error) {
	l.calls++
	return l.insights, l.err
}

func newTestCache(t *testing.T, next Locator) (*CachedLocator, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedLocator(next, client, time.Minute, logger), mr
}

func TestCachedLocator_ServesSecondLookupFromCache(t *testing.T) {
	next := &countingLocator{insights: models.IPInsights{CountryCode: "NL", City: "Amsterdam"}}
	cache, _ := newTestCache(t, next)
	ctx := context.Background()

	first, err := cache.Lookup(ctx, "192.0.2.10")
	require.NoError(t, err)
	second, err := cache.Lookup(ctx, "192.0.2.10")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "Amsterdam", second.City)
}

func TestCachedLocator_ExpiresAfterTTL(t *testing.T) {
	next := &countingLocator{insights: models.IPInsights{CountryCode: "NL"}}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := cache.Lookup(ctx, "192.0.2.10")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cache.Lookup(ctx, "192.0.2.10")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedLocator_DoesNotCacheFailures(t *testing.T) {
	next := &countingLocator{err: errors.New("quota exceeded")}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := cache.Lookup(ctx, "192.0.2.10")
	assert.Error(t, err)
	assert.False(t, mr.Exists(defaultCachePrefix+"192.0.2.10"))
}

func TestCachedLocator_RedisDownFallsThrough(t *testing.T) {
	next := &countingLocator{insights: models.IPInsights{CountryCode: "US"}}
	cache, mr := newTestCache(t, next)
	mr.Close()

	insights, err := cache.Lookup(context.Background(), "192.0.2.10")

	require.NoError(t, err)
	assert.Equal(t, "US", insights.CountryCode)
}

func TestNoopLocator(t *testing.T) {
	insights, err := NoopLocator{}.Lookup(context.Background(), "192.0.2.10")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.True(t, insights.IsEmpty())
}

func TestMaxMindLocator_MissingDatabase(t *testing.T) {
	_, err := NewMaxMindLocator("/nonexistent/GeoLite2-City.mmdb", "")
	assert.Error(t, err)
}
