package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyops/holocron/internal/alignment"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.GRPCPort)
	assert.Equal(t, "holocron_characters", cfg.Qdrant.Collection)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, uint64(DefaultVectorDimension), cfg.Embedding.Dimension)
	assert.Equal(t, DefaultEmbedTimeoutSeconds, cfg.Embedding.TimeoutSeconds)
	assert.Equal(t, DefaultSeedWorkers, cfg.Seed.MaxWorkers)
	assert.Equal(t, alignment.DefaultEvilAffiliations, cfg.Alignment.EvilAffiliations)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.NotEmpty(t, cfg.Storage.SQLitePath)
	assert.NotEmpty(t, cfg.Catalog.SourceURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOLOCRON_QDRANT_HOST", "qdrant.internal")
	t.Setenv("HOLOCRON_API_LISTEN_ADDR", ":9999")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key-0001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, ":9999", cfg.API.ListenAddr)
	assert.Equal(t, "sk-ant-test-key-0001", cfg.Anthropic.APIKey)
}

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{SQLitePath: "/tmp/holocron.db"},
		Qdrant:  QdrantConfig{Host: "localhost", GRPCPort: 6334, Collection: "chars"},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaBaseURL:  "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			Dimension:      768,
			TimeoutSeconds: 30,
		},
		Catalog: CatalogConfig{SourceURL: "https://example.com/all.json"},
		Seed:    SeedConfig{MaxWorkers: 4},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: ""},
		{
			name:    "missing sqlite path",
			mutate:  func(c *Config) { c.Storage.SQLitePath = "" },
			wantErr: "sqlite_path",
		},
		{
			name:    "missing qdrant host",
			mutate:  func(c *Config) { c.Qdrant.Host = "" },
			wantErr: "qdrant.host",
		},
		{
			name:    "missing collection",
			mutate:  func(c *Config) { c.Qdrant.Collection = "" },
			wantErr: "collection",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Embedding.Provider = "cohere" },
			wantErr: "provider",
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.OpenAIAPIKey = ""
			},
			wantErr: "openai_api_key",
		},
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.OpenAIAPIKey = "sk-test"
			},
			wantErr: "",
		},
		{
			name:    "zero dimension",
			mutate:  func(c *Config) { c.Embedding.Dimension = 0 },
			wantErr: "dimension",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Embedding.TimeoutSeconds = 0 },
			wantErr: "timeout_seconds",
		},
		{
			name:    "missing source url",
			mutate:  func(c *Config) { c.Catalog.SourceURL = "" },
			wantErr: "source_url",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Seed.MaxWorkers = 0 },
			wantErr: "max_workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey(""))
	assert.Equal(t, "***", maskAPIKey("short"))
	masked := maskAPIKey("sk-ant-api-key-1234")
	assert.Equal(t, "sk-a****1234", masked)
	assert.NotContains(t, masked, "api-key")
}

func TestAnthropicConfigString(t *testing.T) {
	c := AnthropicConfig{APIKey: "sk-ant-secret-key-9876", Model: "claude-haiku-4-5-20251001"}
	s := c.String()
	assert.NotContains(t, s, "secret-key")
	assert.Contains(t, s, "claude-haiku-4-5-20251001")
}
