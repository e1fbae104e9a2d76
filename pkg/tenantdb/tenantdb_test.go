package tenantdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

func testConfig() tenantdb.Config {
	return tenantdb.Config{
		Driver:   "mysql",
		Host:     "10.0.0.5",
		Port:     3306,
		Username: "school",
		Password: "default-secret",
		MaxPools: 10,
	}
}

func createTestTenant(subdomain string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Name:      subdomain + " Academy",
		Subdomain: subdomain,
		Status:    tenant.StatusActive,
		Database:  tenant.DatabaseParams{Driver: "mysql", Name: "tenant_" + subdomain},
		CreatedAt: time.Now(),
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	return db, mock
}

// mockOpener hands out one sqlmock-backed pool per database name and counts
// how often each target is opened.
type mockOpener struct {
	t     *testing.T
	mu    sync.Mutex
	dbs   map[string]*gorm.DB
	mocks map[string]sqlmock.Sqlmock
	opens map[string]int
	err   error
}

func newMockOpener(t *testing.T, databases ...string) *mockOpener {
	o := &mockOpener{
		t:     t,
		dbs:   make(map[string]*gorm.DB),
		mocks: make(map[string]sqlmock.Sqlmock),
		opens: make(map[string]int),
	}
	for _, name := range databases {
		o.dbs[name], o.mocks[name] = newMockDB(t)
	}
	return o
}

func (o *mockOpener) Open(_ context.Context, d tenantdb.Descriptor) (*gorm.DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens[d.Database]++
	if o.err != nil {
		return nil, o.err
	}
	db, ok := o.dbs[d.Database]
	if !ok {
		o.t.Fatalf("unexpected database %q", d.Database)
	}
	return db, nil
}

func (o *mockOpener) openCount(database string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[database]
}

type staticStore []*tenant.Tenant

func (s staticStore) ActiveBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	for _, t := range s {
		if t.Subdomain == sub && t.IsActive() {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s staticStore) ByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	for _, t := range s {
		if t.Domain != "" && t.Domain == domain {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s staticStore) ByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	for _, t := range s {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}
