package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractorWithConfig(t *testing.T) {
	config := ExtractorConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	ex, err := NewExtractorWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, ex)
}

func TestNewExtractorTemperatureRange(t *testing.T) {
	// Anything the config validator accepts must construct
	ex, err := NewExtractorWithConfig(ExtractorConfig{Temperature: 1.5})
	require.NoError(t, err)
	require.NotNil(t, ex)

	_, err = NewExtractorWithConfig(ExtractorConfig{Temperature: 2.5})
	assert.Error(t, err)

	_, err = NewExtractorWithConfig(ExtractorConfig{Temperature: -0.1})
	assert.Error(t, err)
}

func TestParseEvents(t *testing.T) {
	raw := `[
		{"title": "Robotics Workshop", "date": "2026-09-12", "time": "14:00",
		 "location": "Lab 3", "target_audience": "Engineering students",
		 "summary": "Hands-on robot building.", "category": "Technology"},
		{"title": "Autumn Concert", "date": "2026-09-20", "time": "19:00",
		 "location": "Main Hall", "target_audience": "All students",
		 "summary": "Live music night.", "category": "Entertainment"}
	]`

	events, err := parseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Robotics Workshop", events[0].Title)
	assert.Equal(t, "2026-09-12", events[0].Date)
	assert.Equal(t, "Engineering students", events[0].Audience)
	assert.Equal(t, "Entertainment", events[1].Category)
}

func TestParseEventsFencedOutput(t *testing.T) {
	raw := "Here are the events:\n```json\n" +
		`[{"title": "Career Fair", "date": "2026-10-01", "summary": "Meet employers."}]` +
		"\n```\nLet me know if you need anything else."

	events, err := parseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Career Fair", events[0].Title)
}

func TestParseEventsBareObject(t *testing.T) {
	raw := `{"title": "Chess Tournament", "location": "Student Union"}`

	events, err := parseEvents(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Chess Tournament", events[0].Title)
}

func TestParseEventsEmptyArray(t *testing.T) {
	events, err := parseEvents("[]")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEventsGarbage(t *testing.T) {
	_, err := parseEvents("sorry, I could not find any events in that text")
	assert.Error(t, err)
}

func TestFillMissing(t *testing.T) {
	events, err := parseEvents(`[{"title": "Minimal Event"}]`)
	require.NoError(t, err)
	require.Len(t, events, 1)

	fillMissing(&events[0])

	assert.Equal(t, "N/A", events[0].Date)
	assert.Equal(t, "N/A", events[0].Time)
	assert.Equal(t, "N/A", events[0].Location)
	assert.Equal(t, "N/A", events[0].Audience)
	assert.Equal(t, "N/A", events[0].Summary)
	assert.Equal(t, "N/A", events[0].Category)
}
