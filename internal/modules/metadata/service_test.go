package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	appcfg "github.com/clipdigest/core/internal/config"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	redisc "github.com/clipdigest/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoResponse = `{
	"items": [{
		"id": "dQw4w9WgXcQ",
		"snippet": {
			"title": "Test Video",
			"description": "A video for testing.",
			"channelId": "UC123",
			"channelTitle": "Test Channel",
			"publishedAt": "2024-01-01T00:00:00Z",
			"tags": ["go", "testing"]
		},
		"contentDetails": {"duration": "PT10M30S"},
		"statistics": {"viewCount": "1000", "likeCount": "100"}
	}]
}`

const searchResponse = `{
	"items": [
		{"id": {"videoId": "vid1"}, "snippet": {"title": "First", "channelTitle": "Ch", "publishedAt": "2024-01-01T00:00:00Z"}},
		{"id": {"videoId": "vid2"}, "snippet": {"title": "Second", "channelTitle": "Ch", "publishedAt": "2024-01-02T00:00:00Z"}}
	]
}`

func newTestMetadataService(t *testing.T, handler http.HandlerFunc, dailyLimit int) *Service {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := redisc.Wrap(rdb)

	cfg := &appcfg.AppConfig{
		Quota: appcfg.QuotaConfig{
			DailyUnitLimit:  dailyLimit,
			DefaultTTLSecs:  3600,
			MetadataTTLSecs: 3600,
			EndpointCosts:   map[string]int{},
		},
		Metadata: appcfg.MetadataConfig{
			Endpoint: upstream.URL,
			APIKey:   "test-key",
		},
	}

	quota := quotacache.NewQuotaCounter(rc, dailyLimit)
	cache := quotacache.New(rc, quota, nil)
	return NewService(cache, cfg, nil)
}

func TestGetVideo(t *testing.T) {
	var hits int32
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		w.Write([]byte(videoResponse))
	}, 100)

	ctx := context.Background()
	result, err := svc.GetVideo(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "Test Video", result.Video.Title)
	assert.Equal(t, "PT10M30S", result.Video.Duration)
	assert.Equal(t, "1000", result.Video.ViewCount)
	assert.Equal(t, []string{"go", "testing"}, result.Video.Tags)

	// second lookup serves from cache; upstream untouched
	cached, err := svc.GetVideo(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	report, err := svc.QuotaUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Used)
	assert.Equal(t, 1, report.Breakdown[endpointVideos])
}

func TestGetVideoNotFound(t *testing.T) {
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}, 100)

	_, err := svc.GetVideo(context.Background(), "missing")
	assert.ErrorIs(t, err, errVideoNotFound)
}

func TestSearchChargesHigherCost(t *testing.T) {
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(searchResponse))
	}, 1000)

	ctx := context.Background()
	result, err := svc.Search(ctx, "go tutorials", 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "vid1", result.Items[0].VideoID)

	report, err := svc.QuotaUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Used)
	assert.Equal(t, 100, report.Breakdown[endpointSearch])
}

func TestQuotaExceededLocally(t *testing.T) {
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchResponse))
	}, 150)

	ctx := context.Background()
	_, err := svc.Search(ctx, "first", 10)
	require.NoError(t, err)

	// 100 units used; another 100-unit search would cross the 150 limit
	_, err = svc.Search(ctx, "second", 10)
	assert.ErrorIs(t, err, quotacache.ErrQuotaExceeded)
}

func TestProviderQuotaErrorMapped(t *testing.T) {
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))
	}, 100000)

	_, err := svc.GetVideo(context.Background(), "any")
	assert.ErrorIs(t, err, quotacache.ErrQuotaExceeded)
}

func TestProviderPlainErrorSurfaced(t *testing.T) {
	svc := newTestMetadataService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "invalid parameter"}}`))
	}, 100)

	_, err := svc.GetVideo(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, quotacache.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "invalid parameter")
}
