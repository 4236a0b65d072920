// Package memory provides an in-memory implementation of the pricing.Store
// interface. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Store implements pricing.Store using in-memory maps
type Store struct {
	mu       sync.RWMutex
	users    map[string]*pricing.User    // keyed by normalized email
	profiles map[string]*pricing.Profile // keyed by user id
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		users:    make(map[string]*pricing.User),
		profiles: make(map[string]*pricing.Profile),
	}
}

// CountLifetimeProfiles implements pricing.Store
func (s *Store) CountLifetimeProfiles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, profile := range s.profiles {
		if profile.Plan == pricing.PlanLifetime {
			count++
		}
	}
	return count, nil
}

// GetProfile implements pricing.Store
func (s *Store) GetProfile(ctx context.Context, userID string) (*pricing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, pricing.ErrProfileNotFound
	}

	// Return a copy to prevent external mutations
	profileCopy := *profile
	return &profileCopy, nil
}

// GetProfileByEmail implements pricing.Store
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*pricing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, pricing.ErrProfileNotFound
	}
	profile, ok := s.profiles[user.ID]
	if !ok {
		return nil, pricing.ErrProfileNotFound
	}

	profileCopy := *profile
	return &profileCopy, nil
}

// UpsertProfile implements pricing.Store
func (s *Store) UpsertProfile(ctx context.Context, profile *pricing.Profile) error {
	if profile == nil || profile.ID == "" {
		return pricing.ErrInvalidProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profileCopy := *profile
	s.profiles[profile.ID] = &profileCopy
	return nil
}

// FindUserByEmail implements pricing.Store
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*pricing.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, pricing.ErrUserNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

// CreateUser implements pricing.Store
func (s *Store) CreateUser(ctx context.Context, email string) (*pricing.User, error) {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; ok {
		return nil, pricing.ErrUserExists
	}

	user := &pricing.User{
		ID:        newID(),
		Email:     email,
		Confirmed: true,
		CreatedAt: time.Now().UTC(),
	}
	s.users[key] = user

	userCopy := *user
	return &userCopy, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand reads never fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
