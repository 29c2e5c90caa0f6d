package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the server looks for config when no flag is given.
const DefaultConfigPath = "config.yaml"

const (
	defaultPort               = 2333
	defaultRedisURL           = "redis://localhost:6379/0"
	defaultMaxChunkTokens     = 1000
	defaultChunkOverlapTokens = 50
	defaultTopicsThreshold    = 10
	defaultKeyPointsThreshold = 15
	defaultSummaryThreshold   = 3
	defaultCompletionTokens   = 1024
	defaultTemperaturePct     = 70
	defaultMaxConcurrent      = 4
	defaultDailyUnitLimit     = 10000
	defaultCacheTTLSecs       = 3600
	defaultMetadataTTLSecs    = 6 * 3600
)

// Load reads YAML config from path, applies env overrides, and normalizes defaults.
// A missing file is not an error; env vars and defaults still apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env + defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)
	return cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("CD_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("CD_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("CD_DSN")); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CD_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CD_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("CD_METADATA_API_KEY")); v != "" {
		cfg.Metadata.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CD_METADATA_ENDPOINT")); v != "" {
		cfg.Metadata.Endpoint = v
	}
}

func normalize(cfg *AppConfig) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "production"
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.RedisURL = defaultRedisURL
	}

	p := &cfg.Processing
	if p.MaxChunkTokens <= 0 {
		p.MaxChunkTokens = defaultMaxChunkTokens
	}
	if p.ChunkOverlapTokens <= 0 {
		p.ChunkOverlapTokens = defaultChunkOverlapTokens
	}
	if p.ChunkOverlapTokens >= p.MaxChunkTokens {
		p.ChunkOverlapTokens = p.MaxChunkTokens / 4
	}
	if p.TopicsThreshold <= 0 {
		p.TopicsThreshold = defaultTopicsThreshold
	}
	if p.KeyPointsThreshold <= 0 {
		p.KeyPointsThreshold = defaultKeyPointsThreshold
	}
	if p.SummaryThreshold <= 0 {
		p.SummaryThreshold = defaultSummaryThreshold
	}
	if p.CompletionMaxTokens <= 0 {
		p.CompletionMaxTokens = defaultCompletionTokens
	}
	if p.CompletionTemperature <= 0 || p.CompletionTemperature > 200 {
		p.CompletionTemperature = defaultTemperaturePct
	}

	if cfg.AI.MaxConcurrentRequests <= 0 {
		cfg.AI.MaxConcurrentRequests = defaultMaxConcurrent
	}
	if strings.TrimSpace(cfg.AI.TargetLanguage) == "" {
		cfg.AI.TargetLanguage = "en"
	}

	q := &cfg.Quota
	if q.DailyUnitLimit <= 0 {
		q.DailyUnitLimit = defaultDailyUnitLimit
	}
	if q.DefaultTTLSecs <= 0 {
		q.DefaultTTLSecs = defaultCacheTTLSecs
	}
	if q.MetadataTTLSecs <= 0 {
		q.MetadataTTLSecs = defaultMetadataTTLSecs
	}
	if q.EndpointCosts == nil {
		q.EndpointCosts = map[string]int{}
	}
}
