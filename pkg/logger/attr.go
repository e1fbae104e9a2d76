package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// SchoolID records the school identifier under the key "school_id".
func SchoolID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("school_id", id)
}

func Database(name string) slog.Attr {
	return slog.String("database", name)
}

func Module(name string) slog.Attr {
	return slog.String("module", name)
}

// Reason records a machine readable reason code, e.g. why a gate degraded.
func Reason(code string) slog.Attr {
	return slog.String("reason", code)
}

// RequestIDExtractor injects the chi request id when present.
func RequestIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}
