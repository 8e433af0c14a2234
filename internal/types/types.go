package types

import (
	"context"

	"github.com/campusradar/campusradar/internal/models"
)

// Core interfaces
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Extractor interface {
	Extract(ctx context.Context, ann models.Announcement) ([]models.Event, error)
}

type EventWriter interface {
	// Upsert stores an event with its embedding. It reports false when the
	// event was skipped as a near-duplicate of one already stored.
	Upsert(ctx context.Context, event models.Event, embedding []float32) (bool, error)
}

type EventSearcher interface {
	Search(ctx context.Context, embedding []float32, filter models.SearchFilter, limit int) ([]models.ScoredEvent, error)
}

type EventStore interface {
	EventWriter
	EventSearcher
	List(ctx context.Context, limit, offset int) ([]models.Event, error)
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, username, password, role string) error
	Authenticate(ctx context.Context, username, password string) (bool, error)
	GetUser(ctx context.Context, username string) (models.User, error)
	UpsertPreferences(ctx context.Context, prefs models.Preferences) error
	GetPreferences(ctx context.Context, username string) (models.Preferences, error)
}

type Recommender interface {
	Recommend(ctx context.Context, prefs models.Preferences, filter models.SearchFilter) ([]models.ScoredEvent, error)
}

type Ingestor interface {
	Run(ctx context.Context, anns []models.Announcement, onProgress func(stage, detail string)) (models.IngestStats, error)
}
