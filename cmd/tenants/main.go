// Command tenants runs administrative tasks against tenant databases:
// schema migrations, database creation, lifecycle changes and plan
// subscriptions. None of it runs on the request path.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samschool/tenancy/pkg/config"
	"github.com/samschool/tenancy/pkg/landlord"
	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/pg"
	"github.com/samschool/tenancy/pkg/redis"
	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

type cliConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Concurrency int    `env:"TENANT_MIGRATE_CONCURRENCY" envDefault:"4"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := bootstrap(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, ErrUnknownCommand) {
			usage()
		}
		code = 1
	}
	stop()
	os.Exit(code)
}

func bootstrap(ctx context.Context, command string, args []string) error {
	var (
		cli      cliConfig
		pgCfg    pg.Config
		redisCfg redis.Config
		dbCfg    tenantdb.Config
	)
	if err := config.Load(&cli); err != nil {
		return err
	}
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	if err := config.Load(&dbCfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cli.Env, "tenancy-cli"),
		logger.WithOutput(os.Stderr),
	)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var cache tenant.Cache = tenant.NoOpCache{}
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		cache = tenant.NewRedisCache(client)
	}

	directory := landlord.NewStore(pool)
	manager := tenantdb.NewManager(dbCfg, tenantdb.WithLogger(log))
	defer func() { _ = manager.Close() }()

	a := &app{
		dir:         directory,
		cache:       tenant.NewCachedStore(directory, cache, 0, log),
		manager:     manager,
		migrator:    tenantdb.NewMigrator(dbCfg.MigrationsPath, tenantdb.WithMigratorLogger(log)),
		seeder:      tenantdb.NewSeeder(dbCfg.SeedsPath),
		bootstrap:   tenantdb.NewBootstrapper(nil, log),
		defaults:    dbCfg,
		out:         os.Stdout,
		log:         log,
		concurrency: cli.Concurrency,
	}
	return a.run(ctx, command, args)
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: tenants <command> [flags]

commands:
  migrate   -tenant <id|subdomain|all> [-fresh] [-seed] [-concurrency n]
  version   -tenant <id|subdomain|all>
  create-db -tenant <id|subdomain> [-migrate]
  drop-db   -tenant <id|subdomain> -force
  status    -tenant <id|subdomain> -set <active|inactive|suspended>
  subscribe -tenant <id|subdomain> -plan <plan id|slug>
  plans     -tenant <id|subdomain>
`)
}
