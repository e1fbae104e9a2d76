package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/respond"
)

// Check is a named readiness dependency, e.g. the landlord database.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

// LivenessHandler always answers 200.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond.Data(w, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs every check with the request context and answers 503
// with the failing check's name when one fails.
func ReadinessHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, c := range checks {
			if err := c.Probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					slog.String("check", c.Name), logger.Error(err))
				respond.Error(w, http.StatusServiceUnavailable, "not_ready",
					"Service is not ready.", map[string]any{"check": c.Name})
				return
			}
		}
		respond.Data(w, map[string]string{"status": "ready"})
	}
}
