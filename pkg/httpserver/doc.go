// Package httpserver runs the API's http.Server with SIGINT/SIGTERM handling
// and graceful shutdown, and provides liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithOnShutdown(func() { _ = manager.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
