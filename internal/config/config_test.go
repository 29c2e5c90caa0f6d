package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 1000, cfg.Processing.MaxChunkTokens)
	assert.Equal(t, 50, cfg.Processing.ChunkOverlapTokens)
	assert.Equal(t, 10, cfg.Processing.TopicsThreshold)
	assert.Equal(t, 15, cfg.Processing.KeyPointsThreshold)
	assert.Equal(t, 3, cfg.Processing.SummaryThreshold)
	assert.Equal(t, 4, cfg.AI.MaxConcurrentRequests)
	assert.Equal(t, "en", cfg.AI.TargetLanguage)
	assert.Equal(t, 10000, cfg.Quota.DailyUnitLimit)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
env: development
ai:
  target_language: ja
  max_concurrent_requests: 2
  providers:
    - id: main
      type: OpenAI
      api_key: sk-test
      default_model: gpt-4o-mini
      enabled: true
processing:
  max_chunk_tokens: 500
quota:
  daily_unit_limit: 250
  endpoint_costs:
    search.list: 100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "ja", cfg.AI.TargetLanguage)
	assert.Equal(t, 2, cfg.AI.MaxConcurrentRequests)
	require.Len(t, cfg.AI.Providers, 1)
	assert.Equal(t, "main", cfg.AI.Providers[0].ID)
	assert.True(t, cfg.AI.Providers[0].Enabled)
	assert.Equal(t, 500, cfg.Processing.MaxChunkTokens)
	assert.Equal(t, 250, cfg.Quota.DailyUnitLimit)
	assert.Equal(t, 100, cfg.Quota.EndpointCosts["search.list"])
	// unset fields still get defaults
	assert.Equal(t, 15, cfg.Processing.KeyPointsThreshold)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not an int"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CD_PORT", "9999")
	t.Setenv("CD_ENV", "development")
	t.Setenv("CD_REDIS_URL", "redis://elsewhere:6379/1")
	t.Setenv("CD_JWT_SECRET", "shhh")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "redis://elsewhere:6379/1", cfg.RedisURL)
	assert.Equal(t, "shhh", cfg.JWTSecret)
}

func TestNormalizeClampsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
processing:
  max_chunk_tokens: 100
  chunk_overlap_tokens: 150
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Processing.ChunkOverlapTokens, "overlap must be clamped below the chunk budget")
}
