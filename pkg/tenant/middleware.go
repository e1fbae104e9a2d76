package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves the request's tenant, rejects inactive tenants,
// activates the tenant connection and stores the tenant (and school, when
// known) in the request context. Every request starts from its own context, so
// nothing resolved for one request is visible to another.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: DefaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := r.Context()

			match, err := resolver.Resolve(r)
			if err != nil {
				if !errors.Is(err, ErrTenantNotFound) && !errors.Is(err, ErrInvalidIdentifier) {
					cfg.logger.ErrorContext(ctx, "tenant resolution failed",
						slog.String("host", r.Host), slog.Any("error", err))
				}
				cfg.errorHandler(w, r, err)
				return
			}

			t := match.Tenant
			if !t.IsActive() {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			ctx = WithTenant(ctx, t)
			if match.School != nil {
				ctx = WithSchool(ctx, match.School)
			}

			if cfg.activator != nil {
				activated, err := cfg.activator.Activate(ctx, t)
				if err != nil {
					cfg.logger.ErrorContext(ctx, "tenant connection provisioning failed",
						slog.String("tenant_id", t.ID.String()),
						slog.String("database", t.Database.Name),
						slog.Any("error", err))
					cfg.errorHandler(w, r, errors.Join(ErrTenantUnavailable, err))
					return
				}
				ctx = activated
			}

			cfg.logger.DebugContext(ctx, "tenant resolved",
				slog.String("rule", string(match.Rule)),
				slog.String("subdomain", t.Subdomain))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests that reach it without a tenant in context,
// e.g. on routes mounted under a skip path.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
