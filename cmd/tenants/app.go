package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/subscription"
	"github.com/samschool/tenancy/pkg/tenant"
	"github.com/samschool/tenancy/pkg/tenantdb"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingTenant   = errors.New("-tenant is required")
	ErrMissingPlan     = errors.New("-plan is required")
	ErrForceRequired   = errors.New("drop-db needs -force")
	ErrTenantsFailed   = errors.New("one or more tenants failed")
	ErrAllNotSupported = errors.New(`-tenant all is only supported by migrate and version`)
)

// directory is the part of the landlord store the commands need.
type directory interface {
	Find(ctx context.Context, ref string) (*tenant.Tenant, error)
	List(ctx context.Context, statuses ...tenant.Status) ([]*tenant.Tenant, error)
	SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error)
	SchoolByTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.School, error)
}

type invalidator interface {
	Invalidate(ctx context.Context, t *tenant.Tenant) error
}

type schemaMigrator interface {
	Up(ctx context.Context, d tenantdb.Descriptor) error
	Fresh(ctx context.Context, d tenantdb.Descriptor) error
	Version(ctx context.Context, d tenantdb.Descriptor) (uint, bool, error)
}

type databaseAdmin interface {
	CreateDatabase(ctx context.Context, d tenantdb.Descriptor) error
	DropDatabase(ctx context.Context, d tenantdb.Descriptor) error
}

// connector opens tenant pools for this process only. API servers keep their
// own pools, so nothing here can evict them.
type connector interface {
	Open(ctx context.Context, t *tenant.Tenant) (*gorm.DB, func(), error)
}

type seeder interface {
	Seed(ctx context.Context, db *gorm.DB) (int, error)
}

type app struct {
	dir         directory
	cache       invalidator
	manager     connector
	migrator    schemaMigrator
	seeder      seeder
	bootstrap   databaseAdmin
	defaults    tenantdb.Config
	out         io.Writer
	log         *slog.Logger
	concurrency int
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "migrate":
		return a.migrate(ctx, args)
	case "version":
		return a.version(ctx, args)
	case "create-db":
		return a.createDB(ctx, args)
	case "drop-db":
		return a.dropDB(ctx, args)
	case "status":
		return a.status(ctx, args)
	case "subscribe":
		return a.subscribe(ctx, args)
	case "plans":
		return a.plans(ctx, args)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// result is the outcome of a per-tenant task.
type result struct {
	tenant *tenant.Tenant
	detail string
	err    error
}

func (a *app) migrate(ctx context.Context, args []string) error {
	fs := newFlagSet("migrate")
	ref := fs.String("tenant", "", "tenant id, subdomain or all")
	fresh := fs.Bool("fresh", false, "drop every table before migrating")
	seed := fs.Bool("seed", false, "run seed files after migrating")
	limit := fs.Int("concurrency", a.concurrency, "tenants migrated in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets, err := a.targets(ctx, *ref)
	if err != nil {
		return err
	}

	results := a.forEach(ctx, targets, *limit, func(ctx context.Context, t *tenant.Tenant) (string, error) {
		d, err := tenantdb.NewDescriptor(t, a.defaults)
		if err != nil {
			return "", err
		}
		if *fresh {
			err = a.migrator.Fresh(ctx, d)
		} else {
			err = a.migrator.Up(ctx, d)
		}
		if err != nil {
			return "", err
		}
		if !*seed {
			return "migrated", nil
		}

		db, release, err := a.manager.Open(ctx, t)
		if err != nil {
			return "", err
		}
		defer release()
		n, err := a.seeder.Seed(ctx, db)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("migrated, %d seed files", n), nil
	})
	return a.report("migrate", results)
}

func (a *app) version(ctx context.Context, args []string) error {
	fs := newFlagSet("version")
	ref := fs.String("tenant", "", "tenant id, subdomain or all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets, err := a.targets(ctx, *ref)
	if err != nil {
		return err
	}

	results := a.forEach(ctx, targets, a.concurrency, func(ctx context.Context, t *tenant.Tenant) (string, error) {
		d, err := tenantdb.NewDescriptor(t, a.defaults)
		if err != nil {
			return "", err
		}
		v, dirty, err := a.migrator.Version(ctx, d)
		if err != nil {
			return "", err
		}
		if dirty {
			return fmt.Sprintf("version %d (dirty)", v), nil
		}
		return fmt.Sprintf("version %d", v), nil
	})
	return a.report("version", results)
}

func (a *app) createDB(ctx context.Context, args []string) error {
	fs := newFlagSet("create-db")
	ref := fs.String("tenant", "", "tenant id or subdomain")
	migrate := fs.Bool("migrate", false, "apply migrations after creating")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, d, err := a.descriptor(ctx, *ref)
	if err != nil {
		return err
	}
	if err := a.bootstrap.CreateDatabase(ctx, d); err != nil {
		return err
	}
	if *migrate {
		if err := a.migrator.Up(ctx, d); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "OK   %s database %s ready\n", t.Subdomain, d.Database)
	return nil
}

func (a *app) dropDB(ctx context.Context, args []string) error {
	fs := newFlagSet("drop-db")
	ref := fs.String("tenant", "", "tenant id or subdomain")
	force := fs.Bool("force", false, "confirm the database is dropped")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*force {
		return ErrForceRequired
	}

	t, d, err := a.descriptor(ctx, *ref)
	if err != nil {
		return err
	}
	if err := a.bootstrap.DropDatabase(ctx, d); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "OK   %s database %s dropped\n", t.Subdomain, d.Database)
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	ref := fs.String("tenant", "", "tenant id or subdomain")
	set := fs.String("set", "", "new status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := a.find(ctx, *ref)
	if err != nil {
		return err
	}
	if *set == "" {
		fmt.Fprintf(a.out, "%s %s\n", t.Subdomain, t.Status)
		return nil
	}

	updated, err := a.dir.SetStatus(ctx, t.ID, tenant.Status(strings.ToLower(*set)))
	if err != nil {
		return err
	}
	if err := a.cache.Invalidate(ctx, updated); err != nil {
		a.log.WarnContext(ctx, "failed to invalidate tenant cache", logger.TenantID(t.ID), logger.Error(err))
	}
	fmt.Fprintf(a.out, "OK   %s %s -> %s\n", updated.Subdomain, t.Status, updated.Status)
	return nil
}

func (a *app) subscribe(ctx context.Context, args []string) error {
	fs := newFlagSet("subscribe")
	ref := fs.String("tenant", "", "tenant id or subdomain")
	planRef := fs.String("plan", "", "plan id or slug")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planRef == "" {
		return ErrMissingPlan
	}

	t, store, release, err := a.subscriptions(ctx, *ref)
	if err != nil {
		return err
	}
	defer release()
	school, err := a.dir.SchoolByTenant(ctx, t.ID)
	if err != nil {
		return err
	}
	plan, err := store.Plan(ctx, *planRef)
	if err != nil {
		return err
	}
	sub, err := store.Activate(ctx, school.ID, plan.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "OK   %s subscribed to %s (%s), modules: %s\n",
		t.Subdomain, plan.Slug, sub.ID, joinModules(plan.Modules))
	return nil
}

func (a *app) plans(ctx context.Context, args []string) error {
	fs := newFlagSet("plans")
	ref := fs.String("tenant", "", "tenant id or subdomain")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, release, err := a.subscriptions(ctx, *ref)
	if err != nil {
		return err
	}
	defer release()
	plans, err := store.Plans(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		fmt.Fprintf(a.out, "%s  %-10s %s\n", p.ID, p.Slug, joinModules(p.Modules))
	}
	return nil
}

func (a *app) subscriptions(ctx context.Context, ref string) (*tenant.Tenant, subscription.Store, func(), error) {
	t, err := a.find(ctx, ref)
	if err != nil {
		return nil, nil, nil, err
	}
	db, release, err := a.manager.Open(ctx, t)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, subscription.NewGormStore(subscription.StaticDB(db)), release, nil
}

func (a *app) find(ctx context.Context, ref string) (*tenant.Tenant, error) {
	ref = strings.TrimSpace(ref)
	switch ref {
	case "":
		return nil, ErrMissingTenant
	case "all":
		return nil, ErrAllNotSupported
	}
	return a.dir.Find(ctx, ref)
}

func (a *app) descriptor(ctx context.Context, ref string) (*tenant.Tenant, tenantdb.Descriptor, error) {
	t, err := a.find(ctx, ref)
	if err != nil {
		return nil, tenantdb.Descriptor{}, err
	}
	d, err := tenantdb.NewDescriptor(t, a.defaults)
	return t, d, err
}

func (a *app) targets(ctx context.Context, ref string) ([]*tenant.Tenant, error) {
	if strings.TrimSpace(ref) == "all" {
		return a.dir.List(ctx)
	}
	t, err := a.find(ctx, ref)
	if err != nil {
		return nil, err
	}
	return []*tenant.Tenant{t}, nil
}

// forEach runs task for every tenant with at most limit in flight. A failing
// tenant does not stop the others; results keep the input order.
func (a *app) forEach(ctx context.Context, targets []*tenant.Tenant, limit int, task func(context.Context, *tenant.Tenant) (string, error)) []result {
	results := make([]result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, t := range targets {
		g.Go(func() error {
			detail, err := task(ctx, t)
			results[i] = result{tenant: t, detail: detail, err: err}
			if err != nil {
				a.log.ErrorContext(ctx, "tenant task failed",
					logger.TenantID(t.ID), logger.Database(t.Database.Name), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *app) report(command string, results []result) error {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(a.out, "FAIL %s (%s): %v%s\n", r.tenant.Subdomain, r.tenant.ID, r.err, hint(r.err))
			continue
		}
		fmt.Fprintf(a.out, "OK   %s (%s): %s\n", r.tenant.Subdomain, r.tenant.ID, r.detail)
	}
	fmt.Fprintf(a.out, "%s: %d tenants, %d succeeded, %d failed\n",
		command, len(results), len(results)-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTenantsFailed, failed, len(results))
	}
	return nil
}

// hint suggests the command that fixes a known failure.
func hint(err error) string {
	if tenantdb.IsUnknownDatabase(err) {
		return " (database missing, run create-db)"
	}
	return ""
}

func joinModules(modules []subscription.Module) string {
	if len(modules) == 0 {
		return "-"
	}
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}
