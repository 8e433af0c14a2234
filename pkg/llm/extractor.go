package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/campusradar/campusradar/internal/models"
)

// ExtractorConfig represents the configuration for the extraction engine.
type ExtractorConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string // Ollama server URL
}

const defaultSystemTemplate = `You extract campus event records from announcement emails.
Respond with a JSON array only. Each element has the keys
"title", "date", "time", "location", "target_audience", "summary", "category".
Use ISO dates (yyyy-mm-dd) when the announcement gives one, and "N/A" for any
field the announcement does not mention. Category is one of
Technology, Entertainment, Sports, Business, Cultural or "N/A".
If the text announces no event, respond with [].`

// Extractor is an engine that uses an LLM to pull structured event records
// out of unstructured announcements.
type Extractor struct {
	config ExtractorConfig
	llm    llms.Model
}

// NewExtractorWithConfig creates a new Extractor with the given configuration.
func NewExtractorWithConfig(config ExtractorConfig) (*Extractor, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Extractor{
		config: config,
		llm:    llm,
	}, nil
}

// Extract runs the model over one announcement and returns the structured
// events it describes. An announcement with no events yields an empty slice.
func (ex *Extractor) Extract(ctx context.Context, ann models.Announcement) ([]models.Event, error) {
	var promptBuilder strings.Builder
	if ann.Subject != "" {
		promptBuilder.WriteString(fmt.Sprintf("Subject: %s\n\n", ann.Subject))
	}
	promptBuilder.WriteString(ann.Body)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ex.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, promptBuilder.String()),
	}

	response, err := ex.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ex.config.Temperature),
		llms.WithMaxTokens(ex.config.MaxTokens))
	if err != nil {
		return nil, fmt.Errorf("extraction error: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("extraction error: empty response")
	}

	events, err := parseEvents(response.Choices[0].Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		events[i].Source = ann.Source
		fillMissing(&events[i])
	}

	return events, nil
}

// parseEvents decodes the model output. Models wrap JSON in code fences or
// prose often enough that we cut the payload out before unmarshalling.
func parseEvents(raw string) ([]models.Event, error) {
	payload := stripFences(raw)

	// Cut to the outermost JSON array if there is surrounding prose.
	if start := strings.Index(payload, "["); start >= 0 {
		if end := strings.LastIndex(payload, "]"); end > start {
			payload = payload[start : end+1]
		}
	}

	var events []models.Event
	if err := json.Unmarshal([]byte(payload), &events); err == nil {
		return events, nil
	}

	// Some models return a bare object for a single event.
	var single models.Event
	if err := json.Unmarshal([]byte(stripFences(raw)), &single); err != nil {
		return nil, err
	}
	if single.Title == "" {
		return nil, fmt.Errorf("no events in output")
	}
	return []models.Event{single}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func fillMissing(e *models.Event) {
	for _, f := range []*string{&e.Date, &e.Time, &e.Location, &e.Audience, &e.Summary, &e.Category} {
		if strings.TrimSpace(*f) == "" {
			*f = "N/A"
		}
	}
}
