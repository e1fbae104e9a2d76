// Package landlord is the pgx-backed store for the tenant-common database:
// the tenants registry with each tenant's connection attributes, and the
// school directory that maps schools to their tenant.
//
// Store implements tenant.Store and tenant.SchoolDirectory, so it plugs
// straight into the resolvers (usually behind tenant.NewCachedStore) and the
// module gate. Its schema is applied by pg.Migrate from migrations/landlord.
package landlord
