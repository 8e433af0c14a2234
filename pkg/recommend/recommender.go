package recommend

import (
	"context"
	"fmt"

	"github.com/campusradar/campusradar/internal/models"
	"github.com/campusradar/campusradar/internal/types"
)

// neutralText anchors the preference vector: its embedding is subtracted so
// that profiles full of "N/A" fields do not gravitate toward sparse events.
const neutralText = "N/A"

type RecommenderConfig struct {
	Weights  Weights
	NAWeight float32 // how much of the neutral vector to subtract
	Limit    int
}

// Recommender matches a user's preference profile against stored events.
type Recommender struct {
	config   RecommenderConfig
	embedder types.Embedder
	store    types.EventSearcher
}

func NewRecommender(embedder types.Embedder, store types.EventSearcher, config RecommenderConfig) (*Recommender, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("embedder and store are required")
	}
	if config.Weights == (Weights{}) {
		config.Weights = DefaultWeights()
	}
	if config.NAWeight == 0 {
		config.NAWeight = 0.6
	}
	if config.Limit == 0 {
		config.Limit = 10
	}

	return &Recommender{
		config:   config,
		embedder: embedder,
		store:    store,
	}, nil
}

// Recommend embeds the weighted profile text, subtracts the scaled neutral
// vector and runs a filtered similarity search.
func (r *Recommender) Recommend(ctx context.Context, prefs models.Preferences, filter models.SearchFilter) ([]models.ScoredEvent, error) {
	text := WeightedText(prefs, r.config.Weights)
	if text == "" {
		return nil, fmt.Errorf("preference profile is empty")
	}

	// One call embeds both the profile and the neutral anchor.
	embeddings, err := r.embedder.CreateEmbedding(ctx, []string{text, neutralText})
	if err != nil {
		return nil, fmt.Errorf("failed to embed preferences: %w", err)
	}
	if len(embeddings) != 2 {
		return nil, fmt.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}

	query := combineVectors(embeddings[0], embeddings[1], r.config.NAWeight)

	events, err := r.store.Search(ctx, query, filter, r.config.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	return events, nil
}

// combineVectors returns pref - na*neutral, element-wise.
func combineVectors(pref, neutral []float32, na float32) []float32 {
	combined := make([]float32, len(pref))
	for i := range pref {
		combined[i] = pref[i]
		if i < len(neutral) {
			combined[i] -= na * neutral[i]
		}
	}
	return combined
}
