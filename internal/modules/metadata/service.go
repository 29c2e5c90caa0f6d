// Package metadata is a client for the metered video metadata API. Every
// outbound call runs through the quota-aware cache so repeated lookups cost
// zero units and concurrent misses collapse to one upstream request.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appcfg "github.com/clipdigest/core/internal/config"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	"go.uber.org/zap"
)

const (
	endpointVideos = "videos.list"
	endpointSearch = "search.list"

	// provider-documented unit costs
	defaultVideosCost = 1
	defaultSearchCost = 100
)

var errVideoNotFound = errors.New("video not found")

type Service struct {
	cache *quotacache.Cache
	cfg   *appcfg.AppConfig
	http  *http.Client
	log   *zap.Logger
}

func NewService(cache *quotacache.Cache, cfg *appcfg.AppConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cache: cache,
		cfg:   cfg,
		http:  &http.Client{Timeout: 15 * time.Second},
		log:   log,
	}
}

func (s *Service) unitCost(endpoint string, fallback int) int {
	if cost, ok := s.cfg.Quota.EndpointCosts[endpoint]; ok && cost > 0 {
		return cost
	}
	return fallback
}

// GetVideo fetches one video's metadata, cache first.
func (s *Service) GetVideo(ctx context.Context, videoID string) (*VideoResult, error) {
	params := map[string]string{
		"part": "snippet,contentDetails,statistics",
		"id":   videoID,
	}

	outcome, err := s.cache.Request(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetch(ctx, "/videos", params)
	}, endpointVideos, params, quotacache.Options{
		TTL:       time.Duration(s.cfg.Quota.MetadataTTLSecs) * time.Second,
		QuotaCost: s.unitCost(endpointVideos, defaultVideosCost),
		APIType:   endpointVideos,
	})
	if err != nil {
		return nil, err
	}

	var list providerVideoList
	if err := json.Unmarshal(outcome.Response, &list); err != nil {
		return nil, fmt.Errorf("metadata: decode videos response: %w", err)
	}
	if len(list.Items) == 0 {
		return nil, errVideoNotFound
	}

	item := list.Items[0]
	return &VideoResult{
		Video: Video{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
			Duration:     item.ContentDetails.Duration,
			ViewCount:    item.Statistics.ViewCount,
			LikeCount:    item.Statistics.LikeCount,
			Tags:         item.Snippet.Tags,
		},
		FromCache: outcome.FromCache,
	}, nil
}

// Search runs a metered search query, cache first. Search is the expensive
// endpoint; the unit cost reflects that.
func (s *Service) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 10
	}
	params := map[string]string{
		"part":       "snippet",
		"type":       "video",
		"q":          query,
		"maxResults": strconv.Itoa(maxResults),
	}

	outcome, err := s.cache.Request(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetch(ctx, "/search", params)
	}, endpointSearch, params, quotacache.Options{
		TTL:       time.Duration(s.cfg.Quota.DefaultTTLSecs) * time.Second,
		QuotaCost: s.unitCost(endpointSearch, defaultSearchCost),
		APIType:   endpointSearch,
	})
	if err != nil {
		return nil, err
	}

	var list providerSearchList
	if err := json.Unmarshal(outcome.Response, &list); err != nil {
		return nil, fmt.Errorf("metadata: decode search response: %w", err)
	}

	items := make([]SearchItem, 0, len(list.Items))
	for _, item := range list.Items {
		items = append(items, SearchItem{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return &SearchResult{Items: items, FromCache: outcome.FromCache}, nil
}

// QuotaUsage reports today's consumed units and the per-endpoint breakdown.
func (s *Service) QuotaUsage(ctx context.Context) (*QuotaReport, error) {
	quota := s.cache.Quota()
	total, breakdown, err := quota.Usage(ctx)
	if err != nil {
		return nil, err
	}
	remaining := quota.DailyLimit() - total
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaReport{
		Used:      total,
		Limit:     quota.DailyLimit(),
		Remaining: remaining,
		Breakdown: breakdown,
	}, nil
}

// fetch issues the raw provider call. A 403 with a quota reason, or a 429,
// means provider-side exhaustion and maps to ErrQuotaExceeded.
func (s *Service) fetch(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	endpoint := strings.TrimRight(s.cfg.Metadata.Endpoint, "/")
	if endpoint == "" {
		return nil, errors.New("metadata: endpoint not configured")
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("key", s.cfg.Metadata.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+path+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	var pe providerError
	_ = json.Unmarshal(body, &pe)
	if isProviderQuotaError(resp.StatusCode, pe) {
		return nil, fmt.Errorf("metadata provider: %w", quotacache.ErrQuotaExceeded)
	}
	if pe.Error.Message != "" {
		return nil, fmt.Errorf("metadata provider: %d %s", resp.StatusCode, pe.Error.Message)
	}
	return nil, fmt.Errorf("metadata provider: unexpected status %d", resp.StatusCode)
}

func isProviderQuotaError(status int, pe providerError) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status != http.StatusForbidden {
		return false
	}
	for _, e := range pe.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}
