package tenantdb

import "errors"

var (
	ErrProvisioningFailed  = errors.New("tenant database connection could not be provisioned")
	ErrUnsupportedDriver   = errors.New("unsupported tenant database driver")
	ErrInvalidDescriptor   = errors.New("invalid tenant connection descriptor")
	ErrNoConnection        = errors.New("no tenant connection in context")
	ErrInvalidDatabaseName = errors.New("invalid tenant database name")
	ErrBootstrapFailed     = errors.New("tenant database bootstrap failed")
	ErrMigrationFailed     = errors.New("tenant migration failed")
	ErrSeedFailed          = errors.New("tenant seed failed")
	ErrManagerClosed       = errors.New("tenant connection manager is closed")
)
