// Package redis provides a Redis implementation of the pricing.Store
// interface. Profiles are JSON values keyed by user id, with an email
// index hash and a lifetime-plan set for O(1) purchase counting.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Store implements pricing.Store using Redis
type Store struct {
	client redis.UniversalClient
	config Config
}

// Config holds Redis store configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "gopricing:")
	KeyPrefix string

	// ProfileTTL is the TTL for profile keys (0 = no expiration).
	// Profiles are billing state, so the default keeps them forever.
	ProfileTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "gopricing:",
		ProfileTTL: 0,
	}
}

// New creates a new Redis store.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "gopricing:"
	}
	return &Store{
		client: client,
		config: config,
	}, nil
}

// CountLifetimeProfiles implements pricing.Store
func (s *Store) CountLifetimeProfiles(ctx context.Context) (int, error) {
	count, err := s.client.SCard(ctx, s.lifetimeSetKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count lifetime profiles: %w", err)
	}
	return int(count), nil
}

// GetProfile implements pricing.Store
func (s *Store) GetProfile(ctx context.Context, userID string) (*pricing.Profile, error) {
	data, err := s.client.Get(ctx, s.profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, pricing.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var profile pricing.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// GetProfileByEmail implements pricing.Store
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*pricing.Profile, error) {
	userID, err := s.client.HGet(ctx, s.emailIndexKey(), normalizeEmail(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, pricing.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// UpsertProfile implements pricing.Store.
// The profile value and the lifetime set are updated in one pipeline so
// the purchase count tracks plan changes.
func (s *Store) UpsertProfile(ctx context.Context, profile *pricing.Profile) error {
	if profile == nil || profile.ID == "" {
		return pricing.ErrInvalidProfile
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.profileKey(profile.ID), data, s.config.ProfileTTL)
	if profile.Email != "" {
		pipe.HSet(ctx, s.emailIndexKey(), normalizeEmail(profile.Email), profile.ID)
	}
	if profile.Plan == pricing.PlanLifetime {
		pipe.SAdd(ctx, s.lifetimeSetKey(), profile.ID)
	} else {
		pipe.SRem(ctx, s.lifetimeSetKey(), profile.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// FindUserByEmail implements pricing.Store
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*pricing.User, error) {
	data, err := s.client.HGet(ctx, s.userIndexKey(), normalizeEmail(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, pricing.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var user pricing.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// CreateUser implements pricing.Store.
// HSetNX makes concurrent creates for the same email race-safe: exactly
// one caller wins, the rest get ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, email string) (*pricing.User, error) {
	user := &pricing.User{
		ID:        newID(),
		Email:     email,
		Confirmed: true,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	created, err := s.client.HSetNX(ctx, s.userIndexKey(), normalizeEmail(email), data).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return nil, pricing.ErrUserExists
	}
	return user, nil
}

// Close releases the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies Redis connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) profileKey(userID string) string {
	return s.config.KeyPrefix + "profile:" + userID
}

func (s *Store) emailIndexKey() string {
	return s.config.KeyPrefix + "profiles_by_email"
}

func (s *Store) userIndexKey() string {
	return s.config.KeyPrefix + "users_by_email"
}

func (s *Store) lifetimeSetKey() string {
	return s.config.KeyPrefix + "lifetime_profiles"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
