// Package firestore provides a Firestore implementation of the pricing.Store
// interface. Users and profiles live in separate collections; profile
// documents are keyed by user id so webhook upserts are idempotent.
package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/gopricing/pkg/pricing"
)

// Store implements pricing.Store using Google Cloud Firestore
type Store struct {
	client             *firestore.Client
	usersCollection    string
	profilesCollection string
}

// Config holds Firestore store configuration
type Config struct {
	// UsersCollection is the Firestore collection for users
	// Default: "users"
	UsersCollection string

	// ProfilesCollection is the Firestore collection for plan profiles
	// Default: "profiles"
	ProfilesCollection string
}

// New creates a new Firestore store
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.UsersCollection == "" {
		config.UsersCollection = "users"
	}
	if config.ProfilesCollection == "" {
		config.ProfilesCollection = "profiles"
	}

	return &Store{
		client:             client,
		usersCollection:    config.UsersCollection,
		profilesCollection: config.ProfilesCollection,
	}, nil
}

// CountLifetimeProfiles implements pricing.Store.
// Uses a Firestore aggregation query so the count does not load documents.
func (s *Store) CountLifetimeProfiles(ctx context.Context) (int, error) {
	query := s.client.Collection(s.profilesCollection).
		Where("plan", "==", string(pricing.PlanLifetime))

	result, err := query.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count lifetime profiles: %w", err)
	}

	countValue, ok := result["count"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("aggregation result missing count")
	}
	return int(countValue.GetIntegerValue()), nil
}

// GetProfile implements pricing.Store
func (s *Store) GetProfile(ctx context.Context, userID string) (*pricing.Profile, error) {
	snap, err := s.client.Collection(s.profilesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, pricing.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profileFromDoc(userID, snap.Data()), nil
}

// GetProfileByEmail implements pricing.Store
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*pricing.Profile, error) {
	iter := s.client.Collection(s.profilesCollection).
		Where("email", "==", normalizeEmail(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, pricing.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return profileFromDoc(snap.Ref.ID, snap.Data()), nil
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

	_, err := s.client.Collection(s.profilesCollection).Doc(profile.ID).Set(ctx, map[string]interface{}{
		"email":          normalizeEmail(profile.Email),
		"plan":           string(profile.Plan),
		"notesLimit":     profile.NotesLimit,
		"ocrLimit":       profile.OCRLimit,
		"isEarlyAdopter": profile.IsEarlyAdopter,
		"customerId":     profile.CustomerID,
		"subscriptionId": profile.SubscriptionID,
		"updatedAt":      updatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// FindUserByEmail implements pricing.Store.
// User documents are keyed by normalized email so lookup is a point read.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*pricing.User, error) {
	snap, err := s.client.Collection(s.usersCollection).Doc(normalizeEmail(email)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, pricing.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	data := snap.Data()
	return &pricing.User{
		ID:        getString(data, "id"),
		Email:     getString(data, "email"),
		Confirmed: getBool(data, "confirmed"),
		CreatedAt: getTime(data, "createdAt"),
	}, nil
}

// CreateUser implements pricing.Store.
// Create on the email-keyed document fails with AlreadyExists when a
// concurrent webhook got there first.
func (s *Store) CreateUser(ctx context.Context, email string) (*pricing.User, error) {
	user := &pricing.User{
		ID:        s.client.Collection(s.profilesCollection).NewDoc().ID,
		Email:     email,
		Confirmed: true,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.client.Collection(s.usersCollection).Doc(normalizeEmail(email)).Create(ctx, map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"confirmed": user.Confirmed,
		"createdAt": user.CreatedAt,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, pricing.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Close releases the Firestore client
func (s *Store) Close() error {
	return s.client.Close()
}

func profileFromDoc(id string, data map[string]interface{}) *pricing.Profile {
	return &pricing.Profile{
		ID:             id,
		Email:          getString(data, "email"),
		Plan:           pricing.Plan(getString(data, "plan")),
		NotesLimit:     getInt(data, "notesLimit"),
		OCRLimit:       getInt(data, "ocrLimit"),
		IsEarlyAdopter: getBool(data, "isEarlyAdopter"),
		CustomerID:     getString(data, "customerId"),
		SubscriptionID: getString(data, "subscriptionId"),
		UpdatedAt:      getTime(data, "updatedAt"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func getInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}
