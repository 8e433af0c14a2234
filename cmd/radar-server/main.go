package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	cfgPkg "github.com/campusradar/campusradar/pkg/config"
	"github.com/campusradar/campusradar/pkg/ingest"
	"github.com/campusradar/campusradar/pkg/llm"
	"github.com/campusradar/campusradar/pkg/recommend"
	"github.com/campusradar/campusradar/pkg/store"
	"github.com/campusradar/campusradar/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	addr := flag.String("addr", "", "Listen address")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *addr != "" {
		config.Server.Addr = *addr
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error().Str("field", e.Field).Msg(e.Message)
		}
		logger.Fatal().Msg("invalid configuration")
	}
	if config.Server.JWTSecret == "" {
		logger.Fatal().Msg("RADAR_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := llm.NewExtractorWithConfig(llm.ExtractorConfig{
		Model:       config.LLM.Model,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
		Temperature: config.LLM.Temperature,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize extractor")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.Embedding.Model,
		BaseURL: config.Embedding.BaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}

	eventStore, err := store.NewEventStore(ctx, store.EventStoreConfig{
		ConnString:     config.Database.URL,
		TableName:      config.Database.TableName,
		VectorDim:      config.Database.VectorDim,
		DedupThreshold: config.Database.DedupThreshold,
		SearchLimit:    config.Recommend.Limit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize event store")
	}
	defer eventStore.Close()

	userStore, err := store.NewUserStore(ctx, eventStore.Pool())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize user store")
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Extractor:    extractor,
		Embedder:     embedder,
		Store:        eventStore,
		LLMRateLimit: config.Ingest.LLMRateLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize pipeline")
	}

	recommender, err := recommend.NewRecommender(embedder, eventStore, recommend.RecommenderConfig{
		NAWeight: config.Recommend.NAWeight,
		Limit:    config.Recommend.Limit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize recommender")
	}

	srv := server.New(server.Config{
		Addr:      config.Server.Addr,
		JWTSecret: config.Server.JWTSecret,
		TokenTTL:  time.Duration(config.Server.TokenTTLMin) * time.Minute,
	}, logger, userStore, eventStore, recommender, pipeline)

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
