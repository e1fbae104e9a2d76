package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open landlord db connection")
	ErrEmptyConnectionString    = errors.New("empty landlord connection string, set LANDLORD_DB_URL")
	ErrHealthcheckFailed        = errors.New("landlord db healthcheck failed")
	ErrFailedToParseDBConfig    = errors.New("failed to parse landlord db config")
	ErrFailedToApplyMigrations  = errors.New("failed to apply landlord migrations")
	ErrMigrationsDirNotFound    = errors.New("landlord migrations directory not found")
	ErrMigrationPathNotProvided = errors.New("landlord migration path not provided")
)

// IsNotFoundError reports whether err is pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation (SQLSTATE 23505),
// e.g. a second tenant claiming an existing subdomain.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsUndefinedTableError reports SQLSTATE 42P01, returned before the landlord
// migrations have run.
func IsUndefinedTableError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
