package database

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/stockcast/timeseries"
)

type fakeSource struct {
	calls atomic.Int32
	obs   []timeseries.Observation
	err   error
}

func (f *fakeSource) MonthlyHistory(context.Context, string) ([]timeseries.Observation, error) {
	f.calls.Add(1)
	return f.obs, f.err
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return s, client
}

func sampleHistory() []timeseries.Observation {
	return []timeseries.Observation{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 10},
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: 12.5},
	}
}

func TestHistoryKey(t *testing.T) {
	assert.Equal(t, "history:amoxicillin", HistoryKey("  AMOXICILLIN "))
}

func TestHistoryCache_ReadThrough(t *testing.T) {
	s, client := setupTestRedis(t)
	src := &fakeSource{obs: sampleHistory()}
	cache := NewHistoryCache(src, client, time.Minute, nil)
	ctx := context.Background()

	first, err := cache.MonthlyHistory(ctx, "Amoxicillin")
	require.NoError(t, err)
	second, err := cache.MonthlyHistory(ctx, "amoxicillin")
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, first, second)
	assert.True(t, s.Exists("history:amoxicillin"))
	assert.Equal(t, time.Minute, s.TTL("history:amoxicillin"))
}

func TestHistoryCache_Expiry(t *testing.T) {
	s, client := setupTestRedis(t)
	src := &fakeSource{obs: sampleHistory()}
	cache := NewHistoryCache(src, client, time.Minute, nil)
	ctx := context.Background()

	_, err := cache.MonthlyHistory(ctx, "A")
	require.NoError(t, err)
	s.FastForward(2 * time.Minute)
	_, err = cache.MonthlyHistory(ctx, "A")
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestHistoryCache_EmptyNotCached(t *testing.T) {
	s, client := setupTestRedis(t)
	src := &fakeSource{}
	cache := NewHistoryCache(src, client, time.Minute, nil)

	obs, err := cache.MonthlyHistory(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, obs)
	assert.False(t, s.Exists("history:missing"))
}

func TestHistoryCache_SourceError(t *testing.T) {
	_, client := setupTestRedis(t)
	src := &fakeSource{err: errors.New("db down")}
	cache := NewHistoryCache(src, client, time.Minute, nil)

	_, err := cache.MonthlyHistory(context.Background(), "A")
	assert.EqualError(t, err, "db down")
}

func TestHistoryCache_RedisUnavailable(t *testing.T) {
	s, client := setupTestRedis(t)
	src := &fakeSource{obs: sampleHistory()}
	cache := NewHistoryCache(src, client, time.Minute, nil)
	s.Close()

	obs, err := cache.MonthlyHistory(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestHistoryCache_CorruptEntry(t *testing.T) {
	s, client := setupTestRedis(t)
	require.NoError(t, s.Set("history:a", "not json"))
	src := &fakeSource{obs: sampleHistory()}
	cache := NewHistoryCache(src, client, time.Minute, nil)

	obs, err := cache.MonthlyHistory(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.Equal(t, int32(1), src.calls.Load())
}
