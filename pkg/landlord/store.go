package landlord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samschool/tenancy/pkg/pg"
	"github.com/samschool/tenancy/pkg/tenant"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads the tenant registry and the school directory from the
// tenant-common database. It implements tenant.Store and
// tenant.SchoolDirectory.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

const tenantColumns = `id, name, domain, subdomain, db_driver, db_host, db_port, db_name,
	db_username, db_password, status, settings, created_at, updated_at`

func (s *Store) ActiveBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	return s.getTenant(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1 AND status = 'active'`,
		strings.ToLower(subdomain))
}

// BySubdomain ignores status. Administrative commands use it.
func (s *Store) BySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	return s.getTenant(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1
		ORDER BY (status = 'active') DESC, created_at DESC LIMIT 1`,
		strings.ToLower(subdomain))
}

func (s *Store) ByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.getTenant(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE lower(domain) = $1`,
		strings.ToLower(domain))
}

func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.getTenant(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// Find looks a tenant up by id when ref parses as a UUID, by subdomain otherwise.
func (s *Store) Find(ctx context.Context, ref string) (*tenant.Tenant, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.ByID(ctx, id)
	}
	return s.BySubdomain(ctx, ref)
}

// List returns every tenant, optionally restricted to the given statuses.
func (s *Store) List(ctx context.Context, statuses ...tenant.Status) ([]*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return tenants, nil
}

// SetStatus changes the lifecycle state of a tenant and returns the updated
// record. Callers holding a tenant cache must invalidate it afterwards.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t, err := s.getTenant(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+tenantColumns,
		id, string(status))
	if pg.IsDuplicateKeyError(err) {
		return nil, errors.Join(ErrSubdomainTaken, err)
	}
	return t, err
}

// UpdateSettings replaces the tenant's settings document.
func (s *Store) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET settings = $2, updated_at = now() WHERE id = $1`, id, raw)
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

func (s *Store) SchoolByID(ctx context.Context, id uuid.UUID) (*tenant.School, error) {
	return s.getSchool(ctx, `SELECT id, tenant_id, name FROM schools WHERE id = $1`, id)
}

// SchoolByTenant returns the tenant's oldest school.
func (s *Store) SchoolByTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.School, error) {
	return s.getSchool(ctx,
		`SELECT id, tenant_id, name FROM schools WHERE tenant_id = $1 ORDER BY created_at LIMIT 1`,
		tenantID)
}

func (s *Store) getTenant(ctx context.Context, query string, args ...any) (*tenant.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx, query, args...))
	if pg.IsNotFoundError(err) {
		return nil, tenant.ErrTenantNotFound
	}
	return t, err
}

func (s *Store) getSchool(ctx context.Context, query string, args ...any) (*tenant.School, error) {
	var school tenant.School
	err := s.db.QueryRow(ctx, query, args...).Scan(&school.ID, &school.TenantID, &school.Name)
	if pg.IsNotFoundError(err) {
		return nil, tenant.ErrSchoolNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return &school, nil
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t                                tenant.Tenant
		domain, host, username, password *string
		port                             *int32
		status                           string
		settings                         []byte
		createdAt, updatedAt             time.Time
	)
	err := row.Scan(
		&t.ID, &t.Name, &domain, &t.Subdomain,
		&t.Database.Driver, &host, &port, &t.Database.Name,
		&username, &password, &status, &settings, &createdAt, &updatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	t.Domain = deref(domain)
	t.Database.Host = deref(host)
	t.Database.Username = deref(username)
	t.Database.Password = deref(password)
	if port != nil {
		t.Database.Port = int(*port)
	}
	t.Status = tenant.Status(status)
	t.CreatedAt, t.UpdatedAt = createdAt, updatedAt

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, errors.Join(ErrQueryFailed, fmt.Errorf("tenant %s settings: %w", t.ID, err))
		}
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
