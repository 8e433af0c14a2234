package ingest

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/campusradar/campusradar/internal/metrics"
	"github.com/campusradar/campusradar/internal/models"
	"github.com/campusradar/campusradar/internal/types"
)

type PipelineConfig struct {
	Extractor    types.Extractor
	Embedder     types.Embedder
	Store        types.EventWriter
	LLMRateLimit float64 // extraction calls per second
}

// Pipeline drives announcements through extraction, embedding, dedup and
// storage. Extraction failures are counted, not fatal.
type Pipeline struct {
	config  PipelineConfig
	limiter *rate.Limiter
}

func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	if config.Extractor == nil || config.Embedder == nil || config.Store == nil {
		return nil, fmt.Errorf("extractor, embedder and store are required")
	}
	if config.LLMRateLimit == 0 {
		config.LLMRateLimit = 1
	}

	return &Pipeline{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.LLMRateLimit), 1),
	}, nil
}

// Run drives every announcement through the pipeline. onProgress may be nil;
// it receives (stage, detail) pairs as work happens.
func (p *Pipeline) Run(ctx context.Context, anns []models.Announcement, onProgress func(stage, detail string)) (models.IngestStats, error) {
	progress := func(stage, detail string) {
		if onProgress != nil {
			onProgress(stage, detail)
		}
	}

	stats := models.IngestStats{Announcements: len(anns)}

	for _, ann := range anns {
		if err := p.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		progress("extracting", ann.Subject)
		metrics.AnnouncementsIngested.Inc()

		events, err := p.config.Extractor.Extract(ctx, ann)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failures++
			metrics.ExtractionFailures.Inc()
			progress("error", fmt.Sprintf("extraction failed for %q: %v", ann.Subject, err))
			continue
		}

		stats.Extracted += len(events)
		metrics.EventsExtracted.Add(float64(len(events)))

		for _, event := range events {
			embeddings, err := p.config.Embedder.CreateEmbedding(ctx, []string{event.EmbeddingText()})
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.Failures++
				progress("error", fmt.Sprintf("embedding failed for %q: %v", event.Title, err))
				continue
			}
			if len(embeddings) == 0 {
				stats.Failures++
				continue
			}

			inserted, err := p.config.Store.Upsert(ctx, event, embeddings[0])
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.Failures++
				progress("error", fmt.Sprintf("store failed for %q: %v", event.Title, err))
				continue
			}

			if inserted {
				stats.Stored++
				metrics.EventsStored.Inc()
				progress("stored", event.Title)
			} else {
				stats.Duplicates++
				metrics.EventsDeduplicated.Inc()
				progress("duplicate", event.Title)
			}
		}
	}

	return stats, nil
}
