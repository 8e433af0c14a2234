package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"embedding"`

	Database struct {
		URL            string  `yaml:"url"`
		TableName      string  `yaml:"table_name"`
		VectorDim      int     `yaml:"vector_dim"`
		DedupThreshold float32 `yaml:"dedup_threshold"`
	} `yaml:"database"`

	Ingest struct {
		Maildir        string   `yaml:"maildir"`
		BulletinURL    string   `yaml:"bulletin_url"`
		MaxDepth       int      `yaml:"max_depth"`
		RateLimit      float64  `yaml:"rate_limit"`
		LLMRateLimit   float64  `yaml:"llm_rate_limit"`
		IgnorePatterns []string `yaml:"ignore_patterns"`
	} `yaml:"ingest"`

	Recommend struct {
		Limit    int     `yaml:"limit"`
		NAWeight float32 `yaml:"na_weight"`
	} `yaml:"recommend"`

	Server struct {
		Addr        string `yaml:"addr"`
		JWTSecret   string `yaml:"jwt_secret"`
		TokenTTLMin int    `yaml:"token_ttl_minutes"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/campusradar/config.yaml"),
			"/etc/campusradar/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "events"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.DedupThreshold == 0 {
		config.Database.DedupThreshold = 0.835
	}

	if config.Ingest.MaxDepth == 0 {
		config.Ingest.MaxDepth = 2
	}
	if config.Ingest.RateLimit == 0 {
		config.Ingest.RateLimit = 2.0
	}
	if config.Ingest.LLMRateLimit == 0 {
		config.Ingest.LLMRateLimit = 1.0
	}

	if config.Recommend.Limit == 0 {
		config.Recommend.Limit = 10
	}
	if config.Recommend.NAWeight == 0 {
		config.Recommend.NAWeight = 0.6
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.TokenTTLMin == 0 {
		config.Server.TokenTTLMin = 24 * 60
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if secret := os.Getenv("RADAR_JWT_SECRET"); secret != "" {
		config.Server.JWTSecret = secret
	}
}
