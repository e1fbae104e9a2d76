package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/tenant"
)

// Reason codes attached to a Decision.
const (
	ReasonInPlan                   = "module_in_plan"
	ReasonNotInPlan                = "module_not_in_plan"
	ReasonNoTenant                 = "no_tenant"
	ReasonNoSchool                 = "no_school"
	ReasonNoActiveSubscription     = "no_active_subscription"
	ReasonSchoolLookupFailed       = "school_lookup_failed"
	ReasonSubscriptionLookupFailed = "subscription_lookup_failed"
)

// Decision is the outcome of a module check. Degraded is set when the
// check could not be completed and access was granted anyway.
type Decision struct {
	Allowed  bool
	Degraded bool
	Reason   string
}

// Gate decides whether a tenant's school may use a module.
type Gate struct {
	store   Store
	schools tenant.SchoolDirectory
	logger  *slog.Logger
	now     func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock replaces the time source used to test subscription end dates.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGate(store Store, schools tenant.SchoolDirectory, opts ...GateOption) *Gate {
	g := &Gate{
		store:   store,
		schools: schools,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Permit reports whether t may use module.
func (g *Gate) Permit(ctx context.Context, t *tenant.Tenant, module Module) bool {
	return g.Check(ctx, t, module).Allowed
}

// Check resolves the tenant's school and its active subscription and tests
// module membership. Lookup failures other than "not found" do not block the
// request: they are logged and the module is allowed in degraded mode.
func (g *Gate) Check(ctx context.Context, t *tenant.Tenant, module Module) Decision {
	if t == nil {
		return Decision{Reason: ReasonNoTenant}
	}

	school, ok := tenant.SchoolFromContext(ctx)
	if !ok || school.TenantID != t.ID {
		var err error
		school, err = g.schools.SchoolByTenant(ctx, t.ID)
		switch {
		case errors.Is(err, tenant.ErrSchoolNotFound):
			return g.deny(ctx, t, module, ReasonNoSchool)
		case err != nil:
			return g.degrade(ctx, t, module, ReasonSchoolLookupFailed, err)
		}
	}

	sub, err := g.store.ActiveSubscription(ctx, school.ID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		return g.deny(ctx, t, module, ReasonNoActiveSubscription)
	case err != nil:
		return g.degrade(ctx, t, module, ReasonSubscriptionLookupFailed, err)
	}

	if !sub.InForceAt(g.now()) {
		return g.deny(ctx, t, module, ReasonNoActiveSubscription)
	}
	if !sub.Includes(module) {
		return g.deny(ctx, t, module, ReasonNotInPlan)
	}
	return Decision{Allowed: true, Reason: ReasonInPlan}
}

func (g *Gate) deny(ctx context.Context, t *tenant.Tenant, module Module, reason string) Decision {
	g.logger.DebugContext(ctx, "module access denied",
		logger.TenantID(t.ID), logger.Module(string(module)), logger.Reason(reason))
	return Decision{Reason: reason}
}

func (g *Gate) degrade(ctx context.Context, t *tenant.Tenant, module Module, reason string, err error) Decision {
	g.logger.WarnContext(ctx, "module gate degraded, allowing access",
		logger.TenantID(t.ID), logger.Module(string(module)), logger.Reason(reason), logger.Error(err))
	return Decision{Allowed: true, Degraded: true, Reason: reason}
}
