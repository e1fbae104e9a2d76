package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samschool/tenancy/pkg/httpserver"
	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/respond"
	"github.com/samschool/tenancy/pkg/subscription"
	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

type routerDeps struct {
	log      *slog.Logger
	resolver tenant.Resolver
	manager  tenant.Activator
	gate     *subscription.Gate
	skip     []string
	checks   []httpserver.Check
}

type tenantInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	Domain    string `json:"domain,omitempty"`
	Status    string `json:"status"`
	SchoolID  string `json:"school_id,omitempty"`
}

type moduleAccess struct {
	Module  subscription.Module `json:"module"`
	Allowed bool                `json:"allowed"`
	Reason  string              `json:"reason"`
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(deps.log, deps.checks...))

	r.Route("/api", func(r chi.Router) {
		r.Use(tenant.Middleware(deps.resolver,
			tenant.WithActivator(deps.manager),
			tenant.WithLogger(deps.log),
			tenant.WithSkipPaths(deps.skip...),
		))

		r.Get("/tenant", currentTenant)
		r.Get("/students/count", countStudents(deps.log))
		r.Get("/modules", listModules(deps.gate))

		r.With(subscription.RequireModule(deps.gate, subscription.ModuleCBT)).
			Get("/cbt", moduleHome(subscription.ModuleCBT))
		r.With(subscription.RequireModule(deps.gate, subscription.ModuleFeeManagement)).
			Get("/fees", moduleHome(subscription.ModuleFeeManagement))
	})

	return r
}

func currentTenant(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	info := tenantInfo{
		ID:        t.ID.String(),
		Name:      t.Name,
		Subdomain: t.Subdomain,
		Domain:    t.Domain,
		Status:    string(t.Status),
	}
	if s, ok := tenant.SchoolFromContext(r.Context()); ok {
		info.SchoolID = s.ID.String()
	}
	respond.Data(w, info)
}

func countStudents(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db, err := tenantdb.DBFromContext(r.Context())
		if err != nil {
			tenant.DefaultErrorHandler(w, r, tenant.ErrTenantUnavailable)
			return
		}

		var total int64
		if err := db.Table("students").Count(&total).Error; err != nil {
			log.ErrorContext(r.Context(), "failed to count students", logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "internal_error", "Internal server error.", nil)
			return
		}
		respond.Data(w, map[string]int64{"students": total})
	}
}

func listModules(gate *subscription.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := tenant.MustFromContext(r.Context())
		out := make([]moduleAccess, 0, len(subscription.KnownModules))
		for _, m := range subscription.KnownModules {
			d := gate.Check(r.Context(), t, m)
			out = append(out, moduleAccess{Module: m, Allowed: d.Allowed, Reason: d.Reason})
		}
		respond.Data(w, out)
	}
}

func moduleHome(module subscription.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond.Data(w, map[string]any{"module": module, "available": true})
	}
}
