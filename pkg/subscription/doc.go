// Package subscription gates feature modules (CBT, fee management,
// attendance and so on) on the plan of the school's active subscription.
//
// Subscriptions live in each tenant's own database, so the GormStore reads
// through the connection the tenant middleware bound to the request:
//
//	store := subscription.NewGormStore(tenantdb.DBFromContext)
//	gate := subscription.NewGate(store, landlordStore)
//
//	r.With(subscription.RequireModule(gate, subscription.ModuleCBT)).
//		Get("/cbt/exams", listExams)
//
// A school with no active subscription, or whose plan lacks the module, is
// denied with 403 module_access_denied. When the school or subscription
// cannot be looked up at all (for example the tables do not exist yet in a
// freshly created tenant database) the gate logs a warning and allows the
// request with Decision.Degraded set.
package subscription
