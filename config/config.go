package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the qualification pipeline.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	LLM        LLMConfig        `mapstructure:"llm"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains the LLM gateway configuration.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	ScreenModel string        `mapstructure:"screen_model"` // cheap model for Stage 1 batch screening
	RankModel   string        `mapstructure:"rank_model"`   // stronger model for Stage 2 ranking
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// YouTubeConfig contains channel resolution and feed fetch settings.
type YouTubeConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	FeedBaseURL string        `mapstructure:"feed_base_url"`
	FeedTimeout time.Duration `mapstructure:"feed_timeout"`
}

// TranscriptConfig contains transcript service settings.
type TranscriptConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Language        string        `mapstructure:"language"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
	RequestDelay    time.Duration `mapstructure:"request_delay"`
}

// PipelineConfig contains narrowing and batching knobs.
type PipelineConfig struct {
	CandidateLimit  int `mapstructure:"candidate_limit"`
	Stage1BatchSize int `mapstructure:"stage1_batch_size"`
	Stage2PoolSize  int `mapstructure:"stage2_pool_size"`
	ShortlistSize   int `mapstructure:"shortlist_size"`
	ExcerptChars    int `mapstructure:"excerpt_chars"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig contains Redis connection settings for the resolution cache.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// TelemetryConfig contains metrics endpoint settings.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("scout")
	viper.SetConfigType("json")
	if path != "" {
		viper.AddConfigPath(path)
	}
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus env cover the common case.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")

	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.screen_model", "gpt-4o-mini")
	viper.SetDefault("llm.rank_model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "120s")

	viper.SetDefault("youtube.feed_base_url", "https://www.youtube.com/feeds/videos.xml")
	viper.SetDefault("youtube.feed_timeout", "10s")

	viper.SetDefault("transcript.base_url", "https://api.supadata.ai/v1")
	viper.SetDefault("transcript.language", "en")
	viper.SetDefault("transcript.poll_interval", "1s")
	viper.SetDefault("transcript.max_poll_attempts", 30)
	viper.SetDefault("transcript.request_delay", "1200ms")

	viper.SetDefault("pipeline.candidate_limit", 100)
	viper.SetDefault("pipeline.stage1_batch_size", 10)
	viper.SetDefault("pipeline.stage2_pool_size", 20)
	viper.SetDefault("pipeline.shortlist_size", 10)
	viper.SetDefault("pipeline.excerpt_chars", 2000)

	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.postgres.timeout", "5s")
	viper.SetDefault("storage.redis.host", "")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.redis.cache_ttl", "168h")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.addr", ":9090")
}

// overrideFromEnv overrides configuration with environment variables for
// sensitive data that should not live in config files.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("YOUTUBE_API_KEY"); apiKey != "" {
		viper.Set("youtube.api_key", apiKey)
	}
	if apiKey := os.Getenv("TRANSCRIPT_API_KEY"); apiKey != "" {
		viper.Set("transcript.api_key", apiKey)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("storage.postgres.dbname", db)
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("storage.redis.password", password)
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Pipeline.CandidateLimit <= 0 {
		return fmt.Errorf("pipeline.candidate_limit must be positive")
	}
	if config.Pipeline.Stage1BatchSize <= 0 {
		return fmt.Errorf("pipeline.stage1_batch_size must be positive")
	}
	if config.Pipeline.ShortlistSize <= 0 {
		return fmt.Errorf("pipeline.shortlist_size must be positive")
	}
	if config.Pipeline.Stage2PoolSize < config.Pipeline.ShortlistSize {
		return fmt.Errorf("pipeline.stage2_pool_size must be at least the shortlist size")
	}
	if config.Transcript.MaxPollAttempts <= 0 {
		return fmt.Errorf("transcript.max_poll_attempts must be positive")
	}
	return nil
}
