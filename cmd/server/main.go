package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samschool/tenancy/pkg/config"
	"github.com/samschool/tenancy/pkg/httpserver"
	"github.com/samschool/tenancy/pkg/landlord"
	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/pg"
	"github.com/samschool/tenancy/pkg/redis"
	"github.com/samschool/tenancy/pkg/subscription"
	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_SERVICE" envDefault:"tenancy-api"`
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.Service),
		logger.WithContextExtractors(
			logger.RequestIDExtractor(),
			tenant.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		tenantCfg tenant.Config
		dbCfg     tenantdb.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&tenantCfg) },
		func() error { return config.Load(&dbCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	checks := []httpserver.Check{{Name: "landlord", Probe: pg.Healthcheck(pool)}}

	// Without Redis the CLI cannot invalidate this process, so nothing is cached.
	var cache tenant.Cache = tenant.NoOpCache{}
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		cache = tenant.NewRedisCache(client)
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	}

	directory := landlord.NewStore(pool)
	tenants := tenant.NewCachedStore(directory, cache, tenantCfg.CacheTTL, log,
		tenant.WithCredentialCacheSize(tenantCfg.CacheSize))
	manager := tenantdb.NewManager(dbCfg, tenantdb.WithLogger(log))
	gate := subscription.NewGate(
		subscription.NewGormStore(tenantdb.DBFromContext),
		directory,
		subscription.WithGateLogger(log),
	)

	router := newRouter(routerDeps{
		log:      log,
		resolver: tenant.NewDefaultResolver(tenantCfg, tenants, directory),
		manager:  manager,
		gate:     gate,
		skip:     tenantCfg.SkipPaths,
		checks:   checks,
	})

	server := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithOnShutdown(func() {
			if err := manager.Close(); err != nil {
				log.Error("failed to close tenant pools", logger.Error(err))
			}
		}),
	)
	return server.Run(ctx, router)
}
