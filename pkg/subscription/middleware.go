package subscription

import (
	"fmt"
	"net/http"

	"github.com/samschool/tenancy/pkg/respond"
	"github.com/samschool/tenancy/pkg/tenant"
)

// DeniedHandler renders a denied module check.
type DeniedHandler func(w http.ResponseWriter, r *http.Request, module Module, d Decision)

// DefaultDeniedHandler answers 403 with an upgrade hint.
func DefaultDeniedHandler(w http.ResponseWriter, _ *http.Request, module Module, d Decision) {
	respond.Error(w, http.StatusForbidden, "module_access_denied",
		fmt.Sprintf("Your subscription does not include the %s module.", module),
		map[string]any{
			"module":           string(module),
			"reason":           d.Reason,
			"upgrade_required": true,
		})
}

// RequireModule gates a route on module. It must run after tenant.Middleware.
// Panics when module is not a known module.
func RequireModule(gate *Gate, module Module, denied ...DeniedHandler) func(http.Handler) http.Handler {
	if !module.Valid() {
		panic(fmt.Sprintf("subscription: %v %q", ErrInvalidModule, module))
	}
	onDenied := DefaultDeniedHandler
	if len(denied) > 0 && denied[0] != nil {
		onDenied = denied[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := tenant.FromContext(r.Context())
			if !ok {
				tenant.DefaultErrorHandler(w, r, tenant.ErrNoTenantInContext)
				return
			}

			if d := gate.Check(r.Context(), t, module); !d.Allowed {
				onDenied(w, r, module, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
