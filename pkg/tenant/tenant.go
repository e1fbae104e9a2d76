package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant. Tenants are never hard-deleted.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// DatabaseParams are the stored connection attributes of a tenant's isolated
// database. Empty Host, Port, Username or Password fall back to process-wide
// defaults when the connection is provisioned.
type DatabaseParams struct {
	Driver   string `json:"driver"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// Tenant is an isolated customer (a school organization) with its own database.
type Tenant struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain,omitempty"`
	Subdomain string         `json:"subdomain"`
	Database  DatabaseParams `json:"database"`
	Status    Status         `json:"status"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == StatusActive
}

// School is a school record from the tenant-common directory. It carries the
// back-reference to its owning tenant.
type School struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}

// Store loads tenants from the tenant-common database.
// Lookups return ErrTenantNotFound when nothing matches.
type Store interface {
	// ActiveBySubdomain returns the active tenant owning subdomain.
	ActiveBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	// ByDomain returns the tenant whose custom domain equals domain, regardless of status.
	ByDomain(ctx context.Context, domain string) (*Tenant, error)
	// ByID returns the tenant with the given id, regardless of status.
	ByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// SchoolDirectory reads school records from the tenant-common database.
// Lookups return ErrSchoolNotFound when nothing matches.
type SchoolDirectory interface {
	SchoolByID(ctx context.Context, id uuid.UUID) (*School, error)
	SchoolByTenant(ctx context.Context, tenantID uuid.UUID) (*School, error)
}

// Activator binds a resolved tenant's database connection to the request
// context. Implementations must not mutate process-wide state.
type Activator interface {
	Activate(ctx context.Context, t *Tenant) (context.Context, error)
}

// ActivatorFunc adapts a function to the Activator interface.
type ActivatorFunc func(ctx context.Context, t *Tenant) (context.Context, error)

func (f ActivatorFunc) Activate(ctx context.Context, t *Tenant) (context.Context, error) {
	return f(ctx, t)
}
