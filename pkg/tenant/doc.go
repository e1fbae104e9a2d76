// Package tenant resolves which school organization an HTTP request belongs to
// and carries that tenant through the request context.
//
// # Resolution
//
// A Resolver maps a request to a Match. NewDefaultResolver chains four rules
// in fixed precedence, first match wins:
//
//  1. Subdomain: the leftmost label of a host with at least three labels
//     ("acme.samschool.com" -> "acme"), matched against active tenants only.
//     Apex hosts such as "samschool.com" never match.
//  2. Custom domain: the full host against Tenant.Domain.
//  3. Tenant header: a tenant UUID in X-Tenant-ID.
//  4. School: a school UUID in X-School-ID or the school_id query parameter,
//     resolved to its owning tenant through the SchoolDirectory.
//
// A rule that does not match returns ErrTenantNotFound and the chain moves on;
// any other error stops resolution.
//
// # Middleware
//
// Middleware runs the resolver, rejects tenants whose status is not active
// (ErrInactiveTenant, 403) separately from unknown tenants
// (ErrTenantNotFound, 404), calls the configured Activator to bind the
// tenant's database connection to the request context and finally stores the
// tenant with WithTenant:
//
//	resolver := tenant.NewDefaultResolver(cfg, store, schools)
//	r.Use(tenant.Middleware(resolver,
//		tenant.WithActivator(connections),
//		tenant.WithSkipPaths("/healthz"),
//	))
//
// Handlers read the tenant with FromContext or MustFromContext.
//
// # Caching
//
// CachedStore wraps a Store with a Cache shared by every process, in practice
// NewRedisCache; NoOpCache disables caching. Call Invalidate after changing a
// tenant's status, domain or subdomain. Database passwords stay in process.
package tenant
