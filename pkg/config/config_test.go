package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5

embedding:
  model: "nomic-embed-text:latest"

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_events"
  vector_dim: 384
  dedup_threshold: 0.9

ingest:
  maildir: "/var/mail/announcements"
  max_depth: 3
  rate_limit: 1.5
  llm_rate_limit: 0.5

recommend:
  limit: 5
  na_weight: 0.4

server:
  addr: ":9090"
  token_ttl_minutes: 60
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_events", config.Database.TableName)
	assert.Equal(t, 384, config.Database.VectorDim)
	assert.Equal(t, float32(0.9), config.Database.DedupThreshold)
	assert.Equal(t, "/var/mail/announcements", config.Ingest.Maildir)
	assert.Equal(t, 5, config.Recommend.Limit)
	assert.Equal(t, float32(0.4), config.Recommend.NAWeight)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, 60, config.Server.TokenTTLMin)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, "events", config.Database.TableName)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, float32(0.835), config.Database.DedupThreshold)
	assert.Equal(t, 10, config.Recommend.Limit)
	assert.Equal(t, float32(0.6), config.Recommend.NAWeight)
	assert.Equal(t, ":8080", config.Server.Addr)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		expectedErrs int
		fields       []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid llm config",
			mutate: func(c *Config) {
				c.LLM.BaseURL = ""
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
			},
			expectedErrs: 3,
			fields:       []string{"llm.base_url", "llm.max_tokens", "llm.temperature"},
		},
		{
			name: "invalid thresholds",
			mutate: func(c *Config) {
				c.Database.DedupThreshold = 1.5
				c.Recommend.NAWeight = -0.1
			},
			expectedErrs: 2,
			fields:       []string{"database.dedup_threshold", "recommend.na_weight"},
		},
		{
			name: "invalid ingest config",
			mutate: func(c *Config) {
				c.Ingest.MaxDepth = -1
				c.Ingest.RateLimit = -2
				c.Ingest.LLMRateLimit = -1
			},
			expectedErrs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			applyDefaults(config)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			for i, field := range tt.fields {
				assert.Equal(t, field, errors[i].Field)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	os.Setenv("RADAR_JWT_SECRET", "env-secret")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("RADAR_JWT_SECRET")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "env-secret", config.Server.JWTSecret)
}
