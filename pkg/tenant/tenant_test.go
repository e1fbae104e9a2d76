package tenant_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samschool/tenancy/pkg/tenant"
)

type fakeStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenant.Tenant
	calls   int
	err     error
}

func newFakeStore(tenants ...*tenant.Tenant) *fakeStore {
	s := &fakeStore{tenants: make(map[uuid.UUID]*tenant.Tenant)}
	for _, t := range tenants {
		s.tenants[t.ID] = t
	}
	return s
}

func (s *fakeStore) find(match func(*tenant.Tenant) bool) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tenants {
		if match(t) {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *fakeStore) ActiveBySubdomain(_ context.Context, sub string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.Subdomain == sub && t.IsActive() })
}

func (s *fakeStore) ByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.Domain != "" && strings.EqualFold(t.Domain, domain) })
}

func (s *fakeStore) ByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.find(func(t *tenant.Tenant) bool { return t.ID == id })
}

// setStatus replaces the stored tenant with a copy in the new status.
func (s *fakeStore) setStatus(id uuid.UUID, status tenant.Status) *tenant.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := *s.tenants[id]
	updated.Status = status
	s.tenants[id] = &updated
	return &updated
}

func (s *fakeStore) callCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

type fakeSchools struct {
	schools map[uuid.UUID]*tenant.School
	err     error
}

func newFakeSchools(schools ...*tenant.School) *fakeSchools {
	d := &fakeSchools{schools: make(map[uuid.UUID]*tenant.School)}
	for _, s := range schools {
		d.schools[s.ID] = s
	}
	return d
}

func (d *fakeSchools) SchoolByID(_ context.Context, id uuid.UUID) (*tenant.School, error) {
	if d.err != nil {
		return nil, d.err
	}
	if s, ok := d.schools[id]; ok {
		return s, nil
	}
	return nil, tenant.ErrSchoolNotFound
}

func (d *fakeSchools) SchoolByTenant(_ context.Context, tenantID uuid.UUID) (*tenant.School, error) {
	for _, s := range d.schools {
		if s.TenantID == tenantID {
			return s, nil
		}
	}
	return nil, tenant.ErrSchoolNotFound
}

func createTestTenant(subdomain string, status tenant.Status) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Name:      subdomain + " Academy",
		Subdomain: subdomain,
		Database: tenant.DatabaseParams{
			Driver: "mysql",
			Name:   "tenant_" + subdomain,
		},
		Status:    status,
		CreatedAt: time.Now(),
	}
}
