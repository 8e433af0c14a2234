package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/campusradar/campusradar/internal/models"
)

type EventStoreConfig struct {
	ConnString     string
	TableName      string
	VectorDim      int
	DedupThreshold float32
	SearchLimit    int
}

type EventStore struct {
	config EventStoreConfig
	pool   *pgxpool.Pool
}

func NewEventStore(ctx context.Context, config EventStoreConfig) (*EventStore, error) {
	if config.TableName == "" {
		config.TableName = "events"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // Default for nomic-embed-text
	}
	if config.DedupThreshold == 0 {
		config.DedupThreshold = 0.835
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 10
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	es := &EventStore{
		config: config,
		pool:   pool,
	}

	if err := es.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return es, nil
}

func (es *EventStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := es.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			event_date TEXT,
			event_time TEXT,
			location TEXT,
			audience TEXT,
			summary TEXT,
			category TEXT,
			source TEXT,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, es.config.TableName, es.config.VectorDim)

	_, err = es.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	// Create vector index
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		es.config.TableName, es.config.TableName)

	_, err = es.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Pool exposes the underlying connection pool so the user store can share it.
func (es *EventStore) Pool() *pgxpool.Pool {
	return es.pool
}

// Upsert stores one event unless a near-duplicate is already present.
// Similarity against the nearest stored event is checked inside the same
// transaction as the insert, with an advisory lock on the table so two
// concurrent ingests cannot both pass the check with the same neighbour.
func (es *EventStore) Upsert(ctx context.Context, event models.Event, embedding []float32) (bool, error) {
	tx, err := es.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", es.config.TableName); err != nil {
		return false, fmt.Errorf("failed to acquire ingest lock: %v", err)
	}

	vec := pgvector.NewVector(embedding)

	nearest := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT 1`, es.config.TableName)

	var nearestID string
	var similarity float32
	err = tx.QueryRow(ctx, nearest, vec).Scan(&nearestID, &similarity)
	if err != nil && err != pgx.ErrNoRows {
		return false, fmt.Errorf("failed to check for duplicates: %v", err)
	}
	if err == nil && similarity > es.config.DedupThreshold && nearestID != event.ID {
		return false, nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, event_date, event_time, location, audience, summary, category, source, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			event_date = EXCLUDED.event_date,
			event_time = EXCLUDED.event_time,
			location = EXCLUDED.location,
			audience = EXCLUDED.audience,
			summary = EXCLUDED.summary,
			category = EXCLUDED.category,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		es.config.TableName)

	_, err = tx.Exec(ctx, stmt,
		event.ID,
		sanitizeUTF8(event.Title),
		event.Date,
		event.Time,
		sanitizeUTF8(event.Location),
		sanitizeUTF8(event.Audience),
		sanitizeUTF8(event.Summary),
		event.Category,
		event.Source,
		vec,
		event.Metadata,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %v", err)
	}

	return true, nil
}

// Search returns the events nearest to the query embedding, filtered and
// ordered by descending cosine similarity.
func (es *EventStore) Search(ctx context.Context, embedding []float32, filter models.SearchFilter, limit int) ([]models.ScoredEvent, error) {
	if limit == 0 {
		limit = es.config.SearchLimit
	}

	query, args := es.buildSearchQuery(embedding, filter, limit)

	rows, err := es.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %v", err)
	}
	defer rows.Close()

	var events []models.ScoredEvent
	for rows.Next() {
		var ev models.ScoredEvent
		err := rows.Scan(
			&ev.ID,
			&ev.Title,
			&ev.Date,
			&ev.Time,
			&ev.Location,
			&ev.Audience,
			&ev.Summary,
			&ev.Category,
			&ev.Source,
			&ev.Metadata,
			&ev.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// buildSearchQuery assembles the similarity query with optional date-range
// and category filters. Dates are ISO strings, so string comparison orders
// them correctly; "N/A" dates are excluded by range filters naturally.
func (es *EventStore) buildSearchQuery(embedding []float32, filter models.SearchFilter, limit int) (string, []interface{}) {
	args := []interface{}{pgvector.NewVector(embedding)}
	var conditions []string

	if filter.DateFrom != "" {
		args = append(args, filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("event_date >= $%d", len(args)))
	}
	if filter.DateTo != "" {
		args = append(args, filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("event_date <= $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT id, title, event_date, event_time, location, audience, summary, category, source, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`,
		es.config.TableName, where, len(args))

	return query, args
}

func (es *EventStore) List(ctx context.Context, limit, offset int) ([]models.Event, error) {
	if limit == 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, title, event_date, event_time, location, audience, summary, category, source, metadata
		FROM %s
		ORDER BY event_date, title
		LIMIT $1 OFFSET $2`,
		es.config.TableName)

	rows, err := es.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %v", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		err := rows.Scan(
			&ev.ID,
			&ev.Title,
			&ev.Date,
			&ev.Time,
			&ev.Location,
			&ev.Audience,
			&ev.Summary,
			&ev.Category,
			&ev.Source,
			&ev.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

func (es *EventStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", es.config.TableName)
	tag, err := es.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (es *EventStore) Close() {
	if es.pool != nil {
		es.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
