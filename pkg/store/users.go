package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusradar/campusradar/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// UserStore keeps accounts and preference profiles. It shares the event
// store's connection pool.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(ctx context.Context, pool *pgxpool.Pool) (*UserStore, error) {
	us := &UserStore{pool: pool}
	if err := us.initialize(ctx); err != nil {
		return nil, err
	}
	return us, nil
}

func (us *UserStore) initialize(ctx context.Context) error {
	createUsers := `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := us.pool.Exec(ctx, createUsers); err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	createPrefs := `
		CREATE TABLE IF NOT EXISTS preferences (
			username TEXT PRIMARY KEY REFERENCES users(username) ON DELETE CASCADE,
			gender TEXT,
			role TEXT,
			department TEXT,
			year INTEGER,
			interests TEXT[],
			past_events TEXT[],
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := us.pool.Exec(ctx, createPrefs); err != nil {
		return fmt.Errorf("failed to create preferences table: %v", err)
	}

	return nil
}

func (us *UserStore) CreateUser(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	_, err = us.pool.Exec(ctx,
		"INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)",
		username, string(hash), role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %v", err)
	}

	return nil
}

func (us *UserStore) Authenticate(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := us.pool.QueryRow(ctx,
		"SELECT password_hash FROM users WHERE username = $1", username).Scan(&hash)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (us *UserStore) GetUser(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := us.pool.QueryRow(ctx,
		"SELECT username, password_hash, role, created_at FROM users WHERE username = $1",
		username).Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %v", err)
	}
	return u, nil
}

func (us *UserStore) UpsertPreferences(ctx context.Context, prefs models.Preferences) error {
	stmt := `
		INSERT INTO preferences (username, gender, role, department, year, interests, past_events, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (username) DO UPDATE SET
			gender = EXCLUDED.gender,
			role = EXCLUDED.role,
			department = EXCLUDED.department,
			year = EXCLUDED.year,
			interests = EXCLUDED.interests,
			past_events = EXCLUDED.past_events,
			updated_at = now()`

	_, err := us.pool.Exec(ctx, stmt,
		prefs.Username,
		prefs.Gender,
		prefs.Role,
		prefs.Department,
		prefs.Year,
		prefs.Interests,
		prefs.PastEvents,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %v", err)
	}
	return nil
}

func (us *UserStore) GetPreferences(ctx context.Context, username string) (models.Preferences, error) {
	var prefs models.Preferences
	err := us.pool.QueryRow(ctx, `
		SELECT username, gender, role, department, year, interests, past_events
		FROM preferences WHERE username = $1`, username).Scan(
		&prefs.Username,
		&prefs.Gender,
		&prefs.Role,
		&prefs.Department,
		&prefs.Year,
		&prefs.Interests,
		&prefs.PastEvents,
	)
	if err == pgx.ErrNoRows {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to load preferences: %v", err)
	}
	return prefs, nil
}
