package pricing

import "errors"

var (
	// ErrStoreUnavailable is returned when the profile store cannot be reached
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrProfileNotFound is returned when a profile does not exist
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUserNotFound is returned when no user exists for an email
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose email is taken
	ErrUserExists = errors.New("user already exists")

	// ErrNotConfigured is returned when a required dependency is missing
	ErrNotConfigured = errors.New("pricing not configured")

	// ErrInvalidProfile is returned for profiles missing an id or email
	ErrInvalidProfile = errors.New("invalid profile")
)
