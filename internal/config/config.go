// Package config loads holocron configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/galaxyops/holocron/internal/alignment"
)

const (
	// DefaultVectorDimension is the default embedding vector dimension.
	DefaultVectorDimension = 768

	// DefaultEmbedTimeoutSeconds bounds a single embedding provider call.
	DefaultEmbedTimeoutSeconds = 30

	// DefaultSeedWorkers bounds concurrent enrichment during bulk seeding.
	DefaultSeedWorkers = 8
)

// Config holds all configuration for holocron.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// StorageConfig holds the SQLite catalog settings.
type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// QdrantConfig holds Qdrant vector database connection settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	GRPCPort   int    `mapstructure:"grpc_port"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"` // "ollama" or "openai"
	OllamaBaseURL  string `mapstructure:"ollama_base_url"`
	OllamaModel    string `mapstructure:"ollama_model"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIModel    string `mapstructure:"openai_model"`
	Dimension      uint64 `mapstructure:"dimension"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AnthropicConfig holds Claude API settings for biography generation.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation with the API key masked.
func (c AnthropicConfig) String() string {
	return fmt.Sprintf("AnthropicConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// CatalogConfig holds the external character catalog source.
type CatalogConfig struct {
	SourceURL string `mapstructure:"source_url"`
}

// SeedConfig holds bulk seeding settings.
type SeedConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// AlignmentConfig holds classifier settings.
type AlignmentConfig struct {
	EvilAffiliations []string `mapstructure:"evil_affiliations"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("storage.sqlite_path", filepath.Join(homeDir(), ".holocron", "holocron.db"))

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.grpc_port", 6334)
	v.SetDefault("qdrant.collection", "holocron_characters")
	v.SetDefault("qdrant.use_tls", false)

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.ollama_base_url", "http://localhost:11434")
	v.SetDefault("embedding.ollama_model", "nomic-embed-text")
	v.SetDefault("embedding.openai_model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", DefaultVectorDimension)
	v.SetDefault("embedding.timeout_seconds", DefaultEmbedTimeoutSeconds)

	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	v.SetDefault("catalog.source_url", "https://akabab.github.io/starwars-api/api/all.json")

	v.SetDefault("seed.max_workers", DefaultSeedWorkers)

	v.SetDefault("alignment.evil_affiliations", alignment.DefaultEvilAffiliations)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".holocron"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("HOLOCRON")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("qdrant.host", "HOLOCRON_QDRANT_HOST")
	_ = v.BindEnv("qdrant.grpc_port", "HOLOCRON_QDRANT_GRPC_PORT")
	_ = v.BindEnv("embedding.ollama_base_url", "HOLOCRON_EMBEDDING_OLLAMA_BASE_URL")
	_ = v.BindEnv("api.listen_addr", "HOLOCRON_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "HOLOCRON_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path must not be empty")
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant.host must not be empty")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection must not be empty")
	}
	switch c.Embedding.Provider {
	case "ollama":
		if c.Embedding.OllamaBaseURL == "" {
			return fmt.Errorf("embedding.ollama_base_url must not be empty")
		}
	case "openai":
		if c.Embedding.OpenAIAPIKey == "" {
			return fmt.Errorf("embedding.openai_api_key must be set for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be ollama or openai, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension == 0 {
		return fmt.Errorf("embedding.dimension must be greater than 0")
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		return fmt.Errorf("embedding.timeout_seconds must be greater than 0")
	}
	if c.Catalog.SourceURL == "" {
		return fmt.Errorf("catalog.source_url must not be empty")
	}
	if c.Seed.MaxWorkers <= 0 {
		return fmt.Errorf("seed.max_workers must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
