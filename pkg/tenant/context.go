package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type (
	tenantKey struct{}
	schoolKey struct{}
)

// WithTenant stores the resolved tenant in the request context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext returns the tenant stored by WithTenant.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	return t, ok && t != nil
}

// IDFromContext returns the id of the tenant in ctx.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return t.ID, true
}

// MustFromContext panics when no tenant is present. Only use it behind
// Middleware or RequireTenant.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// WithSchool stores the school loaded during resolution.
func WithSchool(ctx context.Context, s *School) context.Context {
	return context.WithValue(ctx, schoolKey{}, s)
}

func SchoolFromContext(ctx context.Context) (*School, bool) {
	s, ok := ctx.Value(schoolKey{}).(*School)
	return s, ok && s != nil
}

// LoggerExtractor returns a logger context extractor adding tenant_id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
