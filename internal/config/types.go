package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int              `yaml:"port"`
	Env            string           `yaml:"env"` // "development" | "production"
	DSN            string           `yaml:"dsn"` // MySQL DSN
	RedisURL       string           `yaml:"redis_url"`
	JWTSecret      string           `yaml:"jwt_secret"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	AI             AIConfig         `yaml:"ai"`
	Processing     ProcessingConfig `yaml:"processing"`
	Quota          QuotaConfig      `yaml:"quota"`
	Metadata       MetadataConfig   `yaml:"metadata"`
}

// AIConfig configures the AI provider registry and per-action model assignments.
type AIConfig struct {
	Providers             []AIProvider       `yaml:"providers"`
	SummaryModel          *AIModelAssignment `yaml:"summary_model,omitempty"`
	KeyPointsModel        *AIModelAssignment `yaml:"key_points_model,omitempty"`
	TopicsModel           *AIModelAssignment `yaml:"topics_model,omitempty"`
	TargetLanguage        string             `yaml:"target_language"`
	MaxConcurrentRequests int                `yaml:"max_concurrent_requests"`
}

// AIModelAssignment pins an action to a specific provider and model.
type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

// AIProvider describes one configured AI backend.
type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// ProcessingConfig tunes chunking and consolidation behaviour.
type ProcessingConfig struct {
	MaxChunkTokens        int `yaml:"max_chunk_tokens"`
	ChunkOverlapTokens    int `yaml:"chunk_overlap_tokens"`
	TopicsThreshold       int `yaml:"topics_consolidation_threshold"`
	KeyPointsThreshold    int `yaml:"key_points_consolidation_threshold"`
	SummaryThreshold      int `yaml:"summary_consolidation_threshold"`
	CompletionMaxTokens   int `yaml:"completion_max_tokens"`
	CompletionTemperature int `yaml:"completion_temperature_pct"` // percent, 70 = 0.7
}

// QuotaConfig bounds daily spend on metered external APIs.
type QuotaConfig struct {
	DailyUnitLimit  int            `yaml:"daily_unit_limit"`
	DefaultTTLSecs  int            `yaml:"default_ttl_seconds"`
	EndpointCosts   map[string]int `yaml:"endpoint_costs"`
	MetadataTTLSecs int            `yaml:"metadata_ttl_seconds"`
}

// MetadataConfig points at the metered video metadata API.
type MetadataConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}
