package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *ReportCache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewReportCache(client, ttl, zerolog.Nop())
}

func sampleReport() *questionnaire.Report {
	return &questionnaire.Report{
		Valid:           false,
		QuestionnaireID: "household",
		Hash:            questionnaire.Hash([]byte(`{"id":"household"}`)),
		Errors: []questionnaire.ValidationError{{
			Message: questionnaire.MsgDuplicateID,
			ID:      "name-answer",
			Context: map[string]any{"count": float64(2)},
		}},
		DurationMS: 4,
	}
}

func TestReportCacheSetGet(t *testing.T) {
	_, cache := setupMiniRedis(t, time.Hour)
	ctx := context.Background()
	report := sampleReport()

	_, found := cache.Get(ctx, report.Hash)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, report))

	got, found := cache.Get(ctx, report.Hash)
	require.True(t, found)
	assert.Equal(t, report, got)
}

func TestReportCacheExpires(t *testing.T) {
	mr, cache := setupMiniRedis(t, time.Minute)
	ctx := context.Background()
	report := sampleReport()

	require.NoError(t, cache.Set(ctx, report))
	assert.Equal(t, time.Minute, mr.TTL(cache.key(report.Hash)))

	mr.FastForward(2 * time.Minute)

	_, found := cache.Get(ctx, report.Hash)
	assert.False(t, found)
}

func TestReportCacheKeyIsVersioned(t *testing.T) {
	_, cache := setupMiniRedis(t, time.Hour)
	key := cache.key("abc")

	assert.Contains(t, key, keyPrefix)
	assert.Contains(t, key, cache.version)
	assert.Len(t, cache.version, 12)
}

func TestReportCacheIgnoresCorruptEntries(t *testing.T) {
	mr, cache := setupMiniRedis(t, time.Hour)
	require.NoError(t, mr.Set(cache.key("abc"), "{not json"))

	_, found := cache.Get(context.Background(), "abc")
	assert.False(t, found)
}

func TestReportCacheDisabled(t *testing.T) {
	_, cache := setupMiniRedis(t, 0)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(ctx, sampleReport()))

	_, found := cache.Get(ctx, sampleReport().Hash)
	assert.False(t, found)

	var nilCache *ReportCache
	assert.False(t, nilCache.Enabled())
}

func TestReportCacheRedisDown(t *testing.T) {
	mr, cache := setupMiniRedis(t, time.Hour)
	mr.Close()

	_, found := cache.Get(context.Background(), "abc")
	assert.False(t, found)
	assert.Error(t, cache.Set(context.Background(), sampleReport()))
}
