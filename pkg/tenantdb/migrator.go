package tenantdb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/samschool/tenancy/pkg/logger"
)

// Migrator applies the tenant schema to one tenant database at a time with
// golang-migrate.
type Migrator struct {
	sourceURL   string
	databaseURL func(Descriptor) string
	logger      *slog.Logger
}

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithDatabaseURL overrides how a descriptor is turned into a golang-migrate
// database URL.
func WithDatabaseURL(fn func(Descriptor) string) MigratorOption {
	return func(m *Migrator) {
		if fn != nil {
			m.databaseURL = fn
		}
	}
}

func WithMigratorLogger(l *slog.Logger) MigratorOption {
	return func(m *Migrator) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMigrator reads migrations from the directory at path.
func NewMigrator(path string, opts ...MigratorOption) *Migrator {
	m := &Migrator{
		sourceURL:   "file://" + path,
		databaseURL: Descriptor.MigrateURL,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations. An up-to-date database is not an error.
// Cancelling ctx stops the run after the migration in progress.
func (m *Migrator) Up(ctx context.Context, d Descriptor) error {
	mg, err := m.instance(ctx, d)
	if err != nil {
		return err
	}
	defer m.closeInstance(mg)

	stop := context.AfterFunc(ctx, func() { mg.GracefulStop <- true })
	defer stop()

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	m.logger.InfoContext(ctx, "tenant migrations applied", logger.Database(d.Database))
	return nil
}

// Fresh drops every table in the tenant database and migrates from scratch.
func (m *Migrator) Fresh(ctx context.Context, d Descriptor) error {
	mg, err := m.instance(ctx, d)
	if err != nil {
		return err
	}
	err = mg.Drop()
	m.closeInstance(mg)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	m.logger.WarnContext(ctx, "tenant tables dropped", logger.Database(d.Database))

	// Drop removes the version table as well, so a new instance is required.
	return m.Up(ctx, d)
}

// Version returns the applied schema version. A database with no migrations
// reports version 0.
func (m *Migrator) Version(ctx context.Context, d Descriptor) (uint, bool, error) {
	mg, err := m.instance(ctx, d)
	if err != nil {
		return 0, false, err
	}
	defer m.closeInstance(mg)

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Join(ErrMigrationFailed, err)
	}
	return version, dirty, nil
}

func (m *Migrator) instance(ctx context.Context, d Descriptor) (*migrate.Migrate, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrMigrationFailed, err)
	}
	mg, err := migrate.New(m.sourceURL, m.databaseURL(d))
	if err != nil {
		return nil, errors.Join(ErrMigrationFailed, err)
	}
	return mg, nil
}

func (m *Migrator) closeInstance(mg *migrate.Migrate) {
	if srcErr, dbErr := mg.Close(); srcErr != nil || dbErr != nil {
		m.logger.Warn("failed to close migration resources",
			slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
	}
}
