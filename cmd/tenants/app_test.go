package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samschool/tenancy/pkg/landlord"
	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

func newTenant(subdomain string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Name:      subdomain + " Academy",
		Subdomain: subdomain,
		Status:    tenant.StatusActive,
		Database:  tenant.DatabaseParams{Driver: "mysql", Name: "tenant_" + subdomain},
	}
}

type fakeDirectory struct {
	tenants []*tenant.Tenant
	schools map[uuid.UUID]*tenant.School
}

func (d *fakeDirectory) Find(_ context.Context, ref string) (*tenant.Tenant, error) {
	for _, t := range d.tenants {
		if t.ID.String() == ref || t.Subdomain == ref {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (d *fakeDirectory) List(context.Context, ...tenant.Status) ([]*tenant.Tenant, error) {
	return d.tenants, nil
}

func (d *fakeDirectory) SetStatus(_ context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error) {
	if !status.Valid() {
		return nil, landlord.ErrInvalidStatus
	}
	for _, t := range d.tenants {
		if t.ID == id {
			updated := *t
			updated.Status = status
			return &updated, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (d *fakeDirectory) SchoolByTenant(_ context.Context, tenantID uuid.UUID) (*tenant.School, error) {
	if s, ok := d.schools[tenantID]; ok {
		return s, nil
	}
	return nil, tenant.ErrSchoolNotFound
}

type fakeInvalidator struct {
	invalidated []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(_ context.Context, t *tenant.Tenant) error {
	f.invalidated = append(f.invalidated, t.ID)
	return nil
}

type fakeMigrator struct {
	mu     sync.Mutex
	failOn map[string]error
	ups    []string
	fresh  []string
}

func (m *fakeMigrator) Up(_ context.Context, d tenantdb.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ups = append(m.ups, d.Database)
	return m.failOn[d.Database]
}

func (m *fakeMigrator) Fresh(_ context.Context, d tenantdb.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fresh = append(m.fresh, d.Database)
	return m.failOn[d.Database]
}

func (m *fakeMigrator) Version(_ context.Context, d tenantdb.Descriptor) (uint, bool, error) {
	return 2, false, m.failOn[d.Database]
}

type fakeAdmin struct {
	created []string
	dropped []string
}

func (f *fakeAdmin) CreateDatabase(_ context.Context, d tenantdb.Descriptor) error {
	f.created = append(f.created, d.Database)
	return nil
}

func (f *fakeAdmin) DropDatabase(_ context.Context, d tenantdb.Descriptor) error {
	f.dropped = append(f.dropped, d.Database)
	return nil
}

type fakeConnector struct {
	mu   sync.Mutex
	db   *gorm.DB
	held int
}

func (c *fakeConnector) Open(context.Context, *tenant.Tenant) (*gorm.DB, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held++
	return c.db, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.held--
	}, nil
}

type countingSeeder struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSeeder) Seed(context.Context, *gorm.DB) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 2, nil
}

type fixture struct {
	app       *app
	out       *bytes.Buffer
	dir       *fakeDirectory
	cache     *fakeInvalidator
	migrator  *fakeMigrator
	admin     *fakeAdmin
	connector *fakeConnector
	seeder    *countingSeeder
	mock      sqlmock.Sqlmock
}

func newFixture(t *testing.T, tenants ...*tenant.Tenant) *fixture {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	f := &fixture{
		out:       &bytes.Buffer{},
		dir:       &fakeDirectory{tenants: tenants, schools: map[uuid.UUID]*tenant.School{}},
		cache:     &fakeInvalidator{},
		migrator:  &fakeMigrator{failOn: map[string]error{}},
		admin:     &fakeAdmin{},
		connector: &fakeConnector{db: db},
		seeder:    &countingSeeder{},
		mock:      mock,
	}
	f.app = &app{
		dir:         f.dir,
		cache:       f.cache,
		manager:     f.connector,
		migrator:    f.migrator,
		seeder:      f.seeder,
		bootstrap:   f.admin,
		defaults:    tenantdb.Config{Host: "127.0.0.1", Port: 3306, Username: "root"},
		out:         f.out,
		log:         logger.Discard(),
		concurrency: 2,
	}
	return f
}

func TestMigrate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("all tenants, one failure does not stop the rest", func(t *testing.T) {
		t.Parallel()
		acme, globex, initech := newTenant("acme"), newTenant("globex"), newTenant("initech")
		f := newFixture(t, acme, globex, initech)
		f.migrator.failOn["tenant_globex"] = errors.New("dial tcp: connection refused")

		err := f.app.run(ctx, "migrate", []string{"-tenant", "all"})
		require.ErrorIs(t, err, ErrTenantsFailed)

		assert.ElementsMatch(t, []string{"tenant_acme", "tenant_globex", "tenant_initech"}, f.migrator.ups)
		out := f.out.String()
		assert.Contains(t, out, "OK   acme")
		assert.Contains(t, out, "FAIL globex")
		assert.Contains(t, out, "OK   initech")
		assert.Contains(t, out, "migrate: 3 tenants, 2 succeeded, 1 failed")
	})

	t.Run("single tenant fresh with seed", func(t *testing.T) {
		t.Parallel()
		acme := newTenant("acme")
		f := newFixture(t, acme, newTenant("globex"))

		require.NoError(t, f.app.run(ctx, "migrate", []string{"-tenant", "acme", "-fresh", "-seed"}))
		assert.Equal(t, []string{"tenant_acme"}, f.migrator.fresh)
		assert.Empty(t, f.migrator.ups)
		assert.Equal(t, 1, f.seeder.calls)
		assert.Zero(t, f.connector.held)
		assert.Contains(t, f.out.String(), "migrated, 2 seed files")
	})

	t.Run("missing database points at create-db", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))
		f.migrator.failOn["tenant_acme"] = errors.Join(tenantdb.ErrMigrationFailed,
			&gomysql.MySQLError{Number: 1049, Message: "Unknown database 'tenant_acme'"})

		err := f.app.run(ctx, "migrate", []string{"-tenant", "acme"})
		require.ErrorIs(t, err, ErrTenantsFailed)
		assert.Contains(t, f.out.String(), "(database missing, run create-db)")
	})

	t.Run("other failures carry no hint", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))
		f.migrator.failOn["tenant_acme"] = errors.New("dial tcp: connection refused")

		require.Error(t, f.app.run(ctx, "migrate", []string{"-tenant", "acme"}))
		assert.NotContains(t, f.out.String(), "create-db")
	})

	t.Run("tenant flag is required", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.app.run(ctx, "migrate", nil), ErrMissingTenant)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.ErrorIs(t, f.app.run(ctx, "migrate", []string{"-tenant", "ghost"}), tenant.ErrTenantNotFound)
	})
}

func TestVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newTenant("acme"))
	require.NoError(t, f.app.run(context.Background(), "version", []string{"-tenant", "all"}))
	assert.Contains(t, f.out.String(), "version 2")
}

func TestDatabaseCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create with migrate", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))

		require.NoError(t, f.app.run(ctx, "create-db", []string{"-tenant", "acme", "-migrate"}))
		assert.Equal(t, []string{"tenant_acme"}, f.admin.created)
		assert.Equal(t, []string{"tenant_acme"}, f.migrator.ups)
	})

	t.Run("drop requires force", func(t *testing.T) {
		t.Parallel()
		acme := newTenant("acme")
		f := newFixture(t, acme)

		assert.ErrorIs(t, f.app.run(ctx, "drop-db", []string{"-tenant", "acme"}), ErrForceRequired)
		assert.Empty(t, f.admin.dropped)

		require.NoError(t, f.app.run(ctx, "drop-db", []string{"-tenant", "acme", "-force"}))
		assert.Equal(t, []string{"tenant_acme"}, f.admin.dropped)
	})

	t.Run("all is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))
		assert.ErrorIs(t, f.app.run(ctx, "create-db", []string{"-tenant", "all"}), ErrAllNotSupported)
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("suspend invalidates cache", func(t *testing.T) {
		t.Parallel()
		acme := newTenant("acme")
		f := newFixture(t, acme)

		require.NoError(t, f.app.run(ctx, "status", []string{"-tenant", acme.ID.String(), "-set", "SUSPENDED"}))
		assert.Equal(t, []uuid.UUID{acme.ID}, f.cache.invalidated)
		assert.Contains(t, f.out.String(), "acme active -> suspended")
	})

	t.Run("reactivation invalidates cache", func(t *testing.T) {
		t.Parallel()
		acme := newTenant("acme")
		acme.Status = tenant.StatusInactive
		f := newFixture(t, acme)

		require.NoError(t, f.app.run(ctx, "status", []string{"-tenant", "acme", "-set", "active"}))
		assert.Len(t, f.cache.invalidated, 1)
		assert.Contains(t, f.out.String(), "acme inactive -> active")
	})

	t.Run("show", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))
		require.NoError(t, f.app.run(ctx, "status", []string{"-tenant", "acme"}))
		assert.Equal(t, "acme active\n", f.out.String())
	})

	t.Run("invalid status", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, newTenant("acme"))
		err := f.app.run(ctx, "status", []string{"-tenant", "acme", "-set", "deleted"})
		assert.ErrorIs(t, err, landlord.ErrInvalidStatus)
		assert.Empty(t, f.cache.invalidated)
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	acme := newTenant("acme")
	f := newFixture(t, acme)
	school := &tenant.School{ID: uuid.New(), TenantID: acme.ID}
	f.dir.schools[acme.ID] = school
	planID := uuid.New()
	now := time.Now()

	f.mock.ExpectQuery("SELECT \\* FROM `plans` WHERE slug = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "created_at", "updated_at"}).
			AddRow(planID.String(), "standard", "Standard", now, now))
	f.mock.ExpectQuery("FROM `plan_module`").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("cbt").AddRow("grading"))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `plans`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	f.mock.ExpectExec("UPDATE `subscriptions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec("INSERT INTO `subscriptions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery("FROM `plan_module`").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("cbt").AddRow("grading"))

	require.NoError(t, f.app.run(context.Background(), "subscribe", []string{"-tenant", "acme", "-plan", "standard"}))
	assert.Contains(t, f.out.String(), "acme subscribed to standard")
	assert.Contains(t, f.out.String(), "modules: cbt,grading")
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Zero(t, f.connector.held)
}

func TestSubscribe_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, newTenant("acme"))
	assert.ErrorIs(t, f.app.run(ctx, "subscribe", []string{"-tenant", "acme"}), ErrMissingPlan)
	assert.ErrorIs(t, f.app.run(ctx, "subscribe", []string{"-tenant", "acme", "-plan", "basic"}), tenant.ErrSchoolNotFound)
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	assert.ErrorIs(t, f.app.run(context.Background(), "explode", nil), ErrUnknownCommand)
}
