package tenantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-sql-driver/mysql"

	"github.com/samschool/tenancy/pkg/logger"
)

// ServerOpener opens a server-level connection (no database selected).
type ServerOpener func(ctx context.Context, d Descriptor) (*sql.DB, error)

// Bootstrapper creates and drops tenant databases. It is only used by
// administrative commands, never on the request path.
type Bootstrapper struct {
	open   ServerOpener
	logger *slog.Logger
}

func NewBootstrapper(open ServerOpener, log *slog.Logger) *Bootstrapper {
	if open == nil {
		open = openServer
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Bootstrapper{open: open, logger: log}
}

func openServer(ctx context.Context, d Descriptor) (*sql.DB, error) {
	db, err := sql.Open("mysql", d.ServerDSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateDatabase creates d.Database with the utf8mb4 character set when it
// does not exist yet.
func (b *Bootstrapper) CreateDatabase(ctx context.Context, d Descriptor) error {
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET %s COLLATE %s",
		d.Database, d.Charset, d.Collation)
	if err := b.exec(ctx, d, stmt); err != nil {
		return err
	}
	b.logger.InfoContext(ctx, "tenant database created", logger.Database(d.Database))
	return nil
}

// DropDatabase removes d.Database and everything in it.
func (b *Bootstrapper) DropDatabase(ctx context.Context, d Descriptor) error {
	if err := b.exec(ctx, d, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", d.Database)); err != nil {
		return err
	}
	b.logger.WarnContext(ctx, "tenant database dropped", logger.Database(d.Database))
	return nil
}

// Exists reports whether d.Database is present on the server.
func (b *Bootstrapper) Exists(ctx context.Context, d Descriptor) (bool, error) {
	if !databaseNamePattern.MatchString(d.Database) {
		return false, fmt.Errorf("%w: %q", ErrInvalidDatabaseName, d.Database)
	}

	db, err := b.open(ctx, d)
	if err != nil {
		return false, errors.Join(ErrBootstrapFailed, err)
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?", d.Database,
	).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, errors.Join(ErrBootstrapFailed, err)
	}
	return true, nil
}

func (b *Bootstrapper) exec(ctx context.Context, d Descriptor, stmt string) error {
	// Identifiers cannot be bound as parameters, so the name is checked instead.
	if !databaseNamePattern.MatchString(d.Database) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, d.Database)
	}

	db, err := b.open(ctx, d)
	if err != nil {
		return errors.Join(ErrBootstrapFailed, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.Join(ErrBootstrapFailed, err)
	}
	return nil
}

// IsUnknownDatabase reports MySQL error 1049, returned when a tenant database
// has not been created yet.
func IsUnknownDatabase(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1049
}
