package recommend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusradar/campusradar/internal/models"
	"github.com/campusradar/campusradar/pkg/recommend"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 1, 1}
		}
	}
	return out, nil
}

type stubSearcher struct {
	gotEmbedding []float32
	gotFilter    models.SearchFilter
	gotLimit     int
	results      []models.ScoredEvent
}

func (s *stubSearcher) Search(_ context.Context, embedding []float32, filter models.SearchFilter, limit int) ([]models.ScoredEvent, error) {
	s.gotEmbedding = embedding
	s.gotFilter = filter
	s.gotLimit = limit
	return s.results, nil
}

func TestRecommend(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"N/A": {1, 0, 0},
		},
	}
	searcher := &stubSearcher{
		results: []models.ScoredEvent{
			{Event: models.Event{ID: "1", Title: "Hack Night"}, Score: 0.91},
			{Event: models.Event{ID: "2", Title: "Startup Pitch"}, Score: 0.85},
		},
	}

	r, err := recommend.NewRecommender(embedder, searcher, recommend.RecommenderConfig{
		NAWeight: 0.5,
		Limit:    7,
	})
	require.NoError(t, err)

	prefs := models.Preferences{
		Role:      "Student",
		Interests: []string{"Technology"},
	}
	filter := models.SearchFilter{DateFrom: "2026-09-01", Category: "Technology"}

	events, err := r.Recommend(context.Background(), prefs, filter)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Hack Night", events[0].Title)

	// The neutral vector is subtracted from the profile embedding
	require.Len(t, searcher.gotEmbedding, 3)
	assert.InDelta(t, 0.5, searcher.gotEmbedding[0], 1e-6) // 1 - 0.5*1
	assert.InDelta(t, 1.0, searcher.gotEmbedding[1], 1e-6)

	assert.Equal(t, filter, searcher.gotFilter)
	assert.Equal(t, 7, searcher.gotLimit)
}

func TestRecommendEmptyProfile(t *testing.T) {
	r, err := recommend.NewRecommender(&stubEmbedder{}, &stubSearcher{}, recommend.RecommenderConfig{})
	require.NoError(t, err)

	_, err = r.Recommend(context.Background(), models.Preferences{}, models.SearchFilter{})
	assert.Error(t, err)
}

func TestRecommenderDefaults(t *testing.T) {
	searcher := &stubSearcher{}
	r, err := recommend.NewRecommender(&stubEmbedder{}, searcher, recommend.RecommenderConfig{})
	require.NoError(t, err)

	_, err = r.Recommend(context.Background(), models.Preferences{Interests: []string{"Sports"}}, models.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, searcher.gotLimit)
}

func TestRecommenderRequiresComponents(t *testing.T) {
	_, err := recommend.NewRecommender(nil, nil, recommend.RecommenderConfig{})
	assert.Error(t, err)
}
