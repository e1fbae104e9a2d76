// Package tenantdb provisions the isolated MySQL database of each tenant.
//
// A Descriptor is built from the tenant record, with host, port and
// credentials falling back to process defaults. Manager keeps one gorm pool
// per physical database and binds the tenant's connection to the request
// context under the logical name "tenant":
//
//	r.Use(tenant.Middleware(resolver, tenant.WithActivator(manager)))
//
//	func countStudents(w http.ResponseWriter, r *http.Request) {
//		var n int64
//		err := tenantdb.DB(r.Context()).Table("students").Count(&n).Error
//		...
//	}
//
// Bootstrapper, Migrator and Seeder are used by the administrative CLI to
// create tenant databases, apply the schema with golang-migrate and load
// seed data. None of them run on the request path.
package tenantdb
