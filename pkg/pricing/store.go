package pricing

import "context"

// Store defines the interface for profile and identity persistence.
// The profile store is the system of record for the purchase count: it is
// updated synchronously by webhook ingestion and does not depend on the
// payment provider's availability.
type Store interface {
	// CountLifetimeProfiles returns the number of profiles on the
	// lifetime plan.
	CountLifetimeProfiles(ctx context.Context) (int, error)

	// GetProfile retrieves a profile by user id.
	// Returns ErrProfileNotFound if no profile exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// GetProfileByEmail retrieves a profile by email.
	// Returns ErrProfileNotFound if no profile exists.
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)

	// UpsertProfile creates or replaces a profile keyed by user id.
	// Repeated application of the same profile must converge to the same
	// stored state.
	UpsertProfile(ctx context.Context, profile *Profile) error

	// FindUserByEmail looks up an identity record by email.
	// Returns ErrUserNotFound if no user exists.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser creates a confirmed identity record for the email.
	// Returns ErrUserExists if the email is already taken; callers doing
	// find-or-create should re-lookup on that error.
	CreateUser(ctx context.Context, email string) (*User, error)
}
