package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.DedupThreshold <= 0 || c.Database.DedupThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "database.dedup_threshold",
			Message: "dedup_threshold must be in (0, 1]",
		})
	}

	// Validate Ingest config
	if c.Ingest.MaxDepth < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_depth",
			Message: "max_depth must be positive",
		})
	}

	if c.Ingest.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Ingest.LLMRateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.llm_rate_limit",
			Message: "llm_rate_limit must be positive",
		})
	}

	// Validate Recommend config
	if c.Recommend.Limit < 1 {
		errors = append(errors, ValidationError{
			Field:   "recommend.limit",
			Message: "limit must be positive",
		})
	}

	if c.Recommend.NAWeight < 0 || c.Recommend.NAWeight > 1 {
		errors = append(errors, ValidationError{
			Field:   "recommend.na_weight",
			Message: "na_weight must be between 0 and 1",
		})
	}

	// Validate base URL format
	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	return errors
}
