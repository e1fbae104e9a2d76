// Package logger builds *slog.Logger instances for the tenancy services.
//
// New accepts functional options for format, level, output and static
// attributes. Context extractors registered with WithContextExtractors run on
// every record, which is how request-scoped values such as the resolved
// tenant id or the chi request id end up in the log line without being passed
// around explicitly:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "tenancy-api"),
//		logger.WithContextExtractors(tenant.LoggerExtractor(), logger.RequestIDExtractor()),
//	)
//
// The attr helpers (Error, TenantID, Module, Reason, ...) keep attribute keys
// consistent between packages.
package logger
