package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/samschool/tenancy/pkg/respond"
)

// ErrorHandler renders errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	activator    Activator
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithActivator sets the connection provisioner run after a tenant resolves.
func WithActivator(a Activator) Option {
	return func(c *config) {
		c.activator = a
	}
}

func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// DefaultErrorHandler writes the JSON rejection for err. The not-found message
// never reveals which resolution rule was attempted.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrNoTenantInContext):
		respond.Error(w, http.StatusNotFound, "tenant_not_found",
			"The requested school could not be found.", nil)
	case errors.Is(err, ErrInactiveTenant):
		respond.Error(w, http.StatusForbidden, "tenant_inactive",
			"This school account is not active. Please contact support.",
			map[string]any{"contact_support": true})
	case errors.Is(err, ErrInvalidIdentifier):
		respond.Error(w, http.StatusBadRequest, "invalid_tenant_identifier",
			"The supplied tenant identifier is invalid.", nil)
	case errors.Is(err, ErrTenantUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, "tenant_unavailable",
			"The school's workspace is temporarily unavailable.", nil)
	default:
		respond.Error(w, http.StatusInternalServerError, "internal_error",
			"Internal server error.", nil)
	}
}
