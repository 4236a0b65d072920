// Package postgres provides a PostgreSQL implementation of the pricing.Store
// interface. Profile writes use INSERT ... ON CONFLICT upserts so webhook
// redelivery converges instead of duplicating rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// Store implements pricing.Store using PostgreSQL
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL store configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL store
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		config: config,
	}, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the users and profiles tables if they do not exist.
// Requires PostgreSQL 13+ for gen_random_uuid.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email      TEXT NOT NULL,
			confirmed  BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_key
			ON users (lower(email));
		CREATE TABLE IF NOT EXISTS profiles (
			id               UUID PRIMARY KEY REFERENCES users (id),
			email            TEXT NOT NULL,
			plan             TEXT NOT NULL DEFAULT 'free',
			notes_limit      INTEGER NOT NULL DEFAULT 50,
			ocr_limit        INTEGER NOT NULL DEFAULT 10,
			is_early_adopter BOOLEAN NOT NULL DEFAULT FALSE,
			customer_id      TEXT NOT NULL DEFAULT '',
			subscription_id  TEXT NOT NULL DEFAULT '',
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS profiles_plan_idx ON profiles (plan);
	`)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CountLifetimeProfiles implements pricing.Store
func (s *Store) CountLifetimeProfiles(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM profiles WHERE plan = $1`,
		string(pricing.PlanLifetime)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lifetime profiles: %w", err)
	}
	return count, nil
}

// GetProfile implements pricing.Store
func (s *Store) GetProfile(ctx context.Context, userID string) (*pricing.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, plan, notes_limit, ocr_limit, is_early_adopter,
			customer_id, subscription_id, updated_at
			FROM profiles WHERE id = $1`,
		userID)
	return scanProfile(row)
}

// GetProfileByEmail implements pricing.Store
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*pricing.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT p.id, p.email, p.plan, p.notes_limit, p.ocr_limit, p.is_early_adopter,
			p.customer_id, p.subscription_id, p.updated_at
			FROM profiles p
			JOIN users u ON u.id = p.id
			WHERE lower(u.email) = lower($1)`,
		email)
	return scanProfile(row)
}

// UpsertProfile implements pricing.Store
func (s *Store) UpsertProfile(ctx context.Context, profile *pricing.Profile) error {
	if profile == nil || profile.ID == "" {
		return pricing.ErrInvalidProfile
	}

	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, plan, notes_limit, ocr_limit,
			is_early_adopter, customer_id, subscription_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				plan = EXCLUDED.plan,
				notes_limit = EXCLUDED.notes_limit,
				ocr_limit = EXCLUDED.ocr_limit,
				is_early_adopter = EXCLUDED.is_early_adopter,
				customer_id = EXCLUDED.customer_id,
				subscription_id = EXCLUDED.subscription_id,
				updated_at = EXCLUDED.updated_at`,
		profile.ID, profile.Email, string(profile.Plan), profile.NotesLimit,
		profile.OCRLimit, profile.IsEarlyAdopter, profile.CustomerID,
		profile.SubscriptionID, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// FindUserByEmail implements pricing.Store
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*pricing.User, error) {
	var user pricing.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, confirmed, created_at
			FROM users WHERE lower(email) = lower($1)`,
		email).Scan(&user.ID, &user.Email, &user.Confirmed, &user.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pricing.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateUser implements pricing.Store
func (s *Store) CreateUser(ctx context.Context, email string) (*pricing.User, error) {
	var user pricing.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, confirmed)
			VALUES ($1, TRUE)
			RETURNING id, email, confirmed, created_at`,
		email).Scan(&user.ID, &user.Email, &user.Confirmed, &user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, pricing.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func scanProfile(row pgx.Row) (*pricing.Profile, error) {
	var profile pricing.Profile
	var plan string

	err := row.Scan(&profile.ID, &profile.Email, &plan, &profile.NotesLimit,
		&profile.OCRLimit, &profile.IsEarlyAdopter, &profile.CustomerID,
		&profile.SubscriptionID, &profile.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pricing.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.Plan = pricing.Plan(plan)
	return &profile, nil
}
