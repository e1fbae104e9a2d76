package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no resolution rule matched.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrSchoolNotFound is returned by SchoolDirectory lookups.
	ErrSchoolNotFound = errors.New("school not found")

	// ErrInvalidIdentifier is returned when a supplied identifier is malformed.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInactiveTenant is returned when the resolved tenant is not active.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrTenantUnavailable wraps failures to provision the tenant's database.
	ErrTenantUnavailable = errors.New("tenant database unavailable")
)
