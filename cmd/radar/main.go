package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/campusradar/campusradar/internal/models"
	cfgPkg "github.com/campusradar/campusradar/pkg/config"
	"github.com/campusradar/campusradar/pkg/ingest"
	"github.com/campusradar/campusradar/pkg/llm"
	"github.com/campusradar/campusradar/pkg/recommend"
	"github.com/campusradar/campusradar/pkg/store"
)

func main() {
	config, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*cfgPkg.Config, error) {
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	maildir := flag.String("maildir", "", "Directory of .eml announcement emails")
	bulletinURL := flag.String("bulletin-url", "", "Campus bulletin URL to crawl")
	dbURL := flag.String("db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	ollamaURL := flag.String("ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	model := flag.String("model", "", "LLM model for extraction")
	embedModel := flag.String("embed-model", "", "Embedding model")
	tableName := flag.String("table", "", "PostgreSQL events table name")
	vectorDim := flag.Int("vector-dim", 0, "Vector dimension")
	dedup := flag.Float64("dedup-threshold", 0, "Similarity above which an event is a duplicate")
	maxDepth := flag.Int("max-depth", 0, "Maximum depth for bulletin crawling")
	rateLimit := flag.Float64("rate-limit", 0, "Rate limit for bulletin crawling")
	llmRate := flag.Float64("llm-rate-limit", 0, "Rate limit for extraction calls")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over the config file
	if *maildir != "" {
		config.Ingest.Maildir = *maildir
	}
	if *bulletinURL != "" {
		config.Ingest.BulletinURL = *bulletinURL
	}
	if *dbURL != "" {
		config.Database.URL = *dbURL
	}
	if *ollamaURL != "" {
		config.LLM.BaseURL = *ollamaURL
		config.Embedding.BaseURL = *ollamaURL
	}
	if *model != "" {
		config.LLM.Model = *model
	}
	if *embedModel != "" {
		config.Embedding.Model = *embedModel
	}
	if *tableName != "" {
		config.Database.TableName = *tableName
	}
	if *vectorDim != 0 {
		config.Database.VectorDim = *vectorDim
	}
	if *dedup != 0 {
		config.Database.DedupThreshold = float32(*dedup)
	}
	if *maxDepth != 0 {
		config.Ingest.MaxDepth = *maxDepth
	}
	if *rateLimit != 0 {
		config.Ingest.RateLimit = *rateLimit
	}
	if *llmRate != 0 {
		config.Ingest.LLMRateLimit = *llmRate
	}

	return config, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config *cfgPkg.Config) error {
	ctx := context.Background()

	extractor, err := llm.NewExtractorWithConfig(llm.ExtractorConfig{
		Model:       config.LLM.Model,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
		Temperature: config.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.Embedding.Model,
		BaseURL: config.Embedding.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	eventStore, err := store.NewEventStore(ctx, store.EventStoreConfig{
		ConnString:     config.Database.URL,
		TableName:      config.Database.TableName,
		VectorDim:      config.Database.VectorDim,
		DedupThreshold: config.Database.DedupThreshold,
		SearchLimit:    config.Recommend.Limit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize event store: %v", err)
	}
	defer eventStore.Close()

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Extractor:    extractor,
		Embedder:     embedder,
		Store:        eventStore,
		LLMRateLimit: config.Ingest.LLMRateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %v", err)
	}

	var anns []models.Announcement

	if config.Ingest.Maildir != "" {
		color.Blue("\nReading announcements from %s\n", config.Ingest.Maildir)

		var readCount int32
		mailBar := getSpinner(" Reading mailbox...")
		mailbox, err := ingest.NewMailbox(ingest.MailboxConfig{
			Dir: config.Ingest.Maildir,
			OnProgress: func(path string) {
				count := atomic.AddInt32(&readCount, 1)
				mailBar.Describe(color.BlueString(
					"Reading mailbox (%d messages)", count))
			},
		})
		if err != nil {
			mailBar.Finish()
			return fmt.Errorf("failed to open mailbox: %v", err)
		}

		mailAnns, err := mailbox.Read()
		mailBar.Finish()
		if err != nil {
			return fmt.Errorf("failed to read mailbox: %v", err)
		}
		color.Green("✓ Read %d announcements\n", len(mailAnns))
		anns = append(anns, mailAnns...)
	}

	if config.Ingest.BulletinURL != "" {
		color.Blue("\nCrawling bulletin %s\n", config.Ingest.BulletinURL)

		var fetchCount int32
		bulletin, err := ingest.NewBulletin(ingest.BulletinConfig{
			BaseURL:        config.Ingest.BulletinURL,
			MaxDepth:       config.Ingest.MaxDepth,
			RateLimit:      config.Ingest.RateLimit,
			IgnorePatterns: config.Ingest.IgnorePatterns,
			OnProgress: func(url string) {
				atomic.AddInt32(&fetchCount, 1)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to initialize bulletin crawler: %v", err)
		}

		crawlBar := getProgressBar(-1, " Crawling bulletin...")
		startTime := time.Now()
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				count := atomic.LoadInt32(&fetchCount)
				crawlBar.Set(int(count))
				if count > 0 {
					elapsed := time.Since(startTime).Seconds()
					crawlBar.Describe(color.BlueString(
						"Crawling bulletin (%.1f pages/sec)", float64(count)/elapsed))
				}
				time.Sleep(100 * time.Millisecond)
			}
		}()

		webAnns, err := bulletin.Fetch(ctx)
		close(done)
		crawlBar.Finish()
		if err != nil {
			return fmt.Errorf("failed to crawl bulletin: %v", err)
		}
		color.Green("✓ Fetched %d pages\n", len(webAnns))
		anns = append(anns, webAnns...)
	}

	if len(anns) > 0 {
		extractBar := getProgressBar(len(anns), " Extracting events...")

		stats, err := pipeline.Run(ctx, anns, func(stage, detail string) {
			switch stage {
			case "extracting":
				extractBar.Add(1)
			case "error":
				color.Red("\n%s", detail)
			}
		})
		extractBar.Finish()
		if err != nil {
			return fmt.Errorf("pipeline failed: %v", err)
		}

		color.Green("\n✓ Extracted %d events from %d announcements", stats.Extracted, stats.Announcements)
		color.Green("✓ Stored %d, skipped %d duplicates, %d failures\n",
			stats.Stored, stats.Duplicates, stats.Failures)
	}

	recommender, err := recommend.NewRecommender(embedder, eventStore, recommend.RecommenderConfig{
		NAWeight: config.Recommend.NAWeight,
		Limit:    config.Recommend.Limit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize recommender: %v", err)
	}

	// Interactive recommendation loop with colored output
	color.Cyan("\nFind events: enter your interests, comma separated (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nInterests: ")
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		if strings.ToLower(line) == "exit" {
			break
		}

		var interests []string
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				interests = append(interests, part)
			}
		}
		if len(interests) == 0 {
			continue
		}

		prefs := models.Preferences{
			Role:      "Student",
			Interests: interests,
		}

		searchSpinner := getSpinner(" Searching events...")
		events, err := recommender.Recommend(ctx, prefs, models.SearchFilter{})
		searchSpinner.Finish()

		if err != nil {
			color.Red("Error finding events: %v\n", err)
			continue
		}

		if len(events) == 0 {
			color.Yellow("No matching events found\n")
			continue
		}

		for _, ev := range events {
			color.Cyan("\n%s", ev.Title)
			fmt.Printf("  %s %s | %s | for %s (score %.3f)\n",
				ev.Date, ev.Time, ev.Location, ev.Audience, ev.Score)
			if ev.Summary != "" && ev.Summary != "N/A" {
				fmt.Printf("  %s\n", ev.Summary)
			}
		}
	}

	return nil
}
