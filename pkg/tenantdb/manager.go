package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samschool/tenancy/pkg/cache"
	"github.com/samschool/tenancy/pkg/logger"
	"github.com/samschool/tenancy/pkg/tenant"
)

// Opener opens a connection pool for a validated descriptor.
type Opener func(ctx context.Context, d Descriptor) (*gorm.DB, error)

// Connection is the tenant connection bound to a request context. It holds a
// reference on its pool until Release is called or the context it was
// created for is done.
type Connection struct {
	Name       string
	TenantID   string
	Descriptor Descriptor
	DB         *gorm.DB

	release func()
}

// Release gives the pool reference back. It is safe to call more than once.
func (c *Connection) Release() {
	if c != nil && c.release != nil {
		c.release()
	}
}

type connectionKey struct{}

// pooledDB is a shared pool and the number of connections using it. A pool
// that left the registry is closed once refs drops to zero.
type pooledDB struct {
	key     string
	db      *gorm.DB
	refs    int
	evicted bool
}

// Manager provisions tenant connections. Pools are shared between requests
// that target the same physical database; the connection a request uses is
// carried by its context and nothing process-wide is switched.
type Manager struct {
	cfg    Config
	open   Opener
	logger *slog.Logger

	// mu guards pools, retired, closed and every pooledDB.
	mu      sync.Mutex
	pools   *cache.LRU[string, *pooledDB]
	retired []*pooledDB
	closed  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOpener replaces the default gorm MySQL opener.
func WithOpener(open Opener) ManagerOption {
	return func(m *Manager) {
		if open != nil {
			m.open = open
		}
	}
}

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	if cfg.MaxPools <= 0 {
		cfg.MaxPools = 100
	}

	m := &Manager{
		cfg:    cfg,
		logger: logger.Discard(),
		pools:  cache.NewLRU[string, *pooledDB](cfg.MaxPools),
	}
	m.open = m.openMySQL
	for _, opt := range opts {
		opt(m)
	}

	// Runs with mu held: every registry call happens under mu.
	m.pools.SetEvictCallback(func(_ string, p *pooledDB) {
		p.evicted = true
		if p.refs == 0 {
			m.retired = append(m.retired, p)
		}
	})
	return m
}

// Activate binds t's connection to a context derived from ctx. It satisfies
// tenant.Activator. The pool reference is released when ctx is done.
func (m *Manager) Activate(ctx context.Context, t *tenant.Tenant) (context.Context, error) {
	ctx, _, err := m.Connect(ctx, t)
	return ctx, err
}

// Connect is Activate that also returns the connection. When ctx already
// carries a connection to the same target it is returned unchanged.
// A connection made on a context that is never done holds its pool until
// Release is called.
func (m *Manager) Connect(ctx context.Context, t *tenant.Tenant) (context.Context, *Connection, error) {
	d, err := NewDescriptor(t, m.cfg)
	if err != nil {
		return ctx, nil, err
	}

	if conn, ok := FromContext(ctx); ok && conn.Descriptor.Key() == d.Key() {
		return ctx, conn, nil
	}

	p, err := m.acquire(ctx, d)
	if err != nil {
		return ctx, nil, err
	}

	conn := &Connection{
		Name:       ConnectionName,
		TenantID:   t.ID.String(),
		Descriptor: d,
		DB:         p.db.WithContext(ctx),
		release:    sync.OnceFunc(func() { m.release(p) }),
	}
	context.AfterFunc(ctx, conn.Release)
	return context.WithValue(ctx, connectionKey{}, conn), conn, nil
}

// Open returns the pooled handle for t without touching any context, plus
// the function that releases it. Administrative commands use it.
func (m *Manager) Open(ctx context.Context, t *tenant.Tenant) (*gorm.DB, func(), error) {
	d, err := NewDescriptor(t, m.cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := m.acquire(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	return p.db, sync.OnceFunc(func() { m.release(p) }), nil
}

func (m *Manager) acquire(ctx context.Context, d Descriptor) (*pooledDB, error) {
	key := d.Key()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if p, ok := m.pools.Get(key); ok {
		p.refs++
		m.mu.Unlock()
		return p, nil
	}
	m.mu.Unlock()

	db, err := m.open(ctx, d)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to open tenant pool",
			slog.Any("target", d),
			slog.Bool("unknown_database", IsUnknownDatabase(err)),
			logger.Error(err))
		return nil, errors.Join(ErrProvisioningFailed, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = closeDB(db)
		return nil, ErrManagerClosed
	}
	// Another request may have opened the same target meanwhile.
	if existing, ok := m.pools.Get(key); ok {
		existing.refs++
		m.mu.Unlock()
		_ = closeDB(db)
		return existing, nil
	}
	p := &pooledDB{key: key, db: db, refs: 1}
	m.pools.Put(key, p)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "tenant pool opened", slog.Any("target", d))
	_ = m.closeRetired()
	return p, nil
}

func (m *Manager) release(p *pooledDB) {
	m.mu.Lock()
	p.refs--
	done := p.refs == 0 && p.evicted
	m.mu.Unlock()

	if done {
		_ = m.closePool(p)
	}
}

// closeRetired closes evicted pools nobody uses any more. It must be called
// without mu held.
func (m *Manager) closeRetired() error {
	m.mu.Lock()
	retired := m.retired
	m.retired = nil
	m.mu.Unlock()

	var errs []error
	for _, p := range retired {
		if err := m.closePool(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) closePool(p *pooledDB) error {
	if err := closeDB(p.db); err != nil {
		m.logger.Warn("failed to close tenant pool", slog.String("pool", p.key), logger.Error(err))
		return fmt.Errorf("close pool %s: %w", p.key, err)
	}
	return nil
}

// Evict drops t's pool from the registry, e.g. after its credentials
// changed. The pool is closed once the connections still using it are
// released.
func (m *Manager) Evict(t *tenant.Tenant) bool {
	d, err := NewDescriptor(t, m.cfg)
	if err != nil {
		return false
	}

	m.mu.Lock()
	removed := m.pools.Remove(d.Key())
	m.mu.Unlock()

	_ = m.closeRetired()
	return removed
}

// Len reports the number of pools in the registry.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pools.Len()
}

// Close closes every idle pool and returns their close errors. Pools still
// held by a connection close when it is released. Later activations fail
// with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.pools.Clear()
	m.mu.Unlock()

	return m.closeRetired()
}

func (m *Manager) openMySQL(ctx context.Context, d Descriptor) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               d.DSN(),
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(m.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.cfg.ConnMaxIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FromContext returns the tenant connection bound to ctx.
func FromContext(ctx context.Context) (*Connection, bool) {
	if ctx == nil {
		return nil, false
	}
	conn, ok := ctx.Value(connectionKey{}).(*Connection)
	return conn, ok && conn != nil
}

// DB returns the tenant handle bound to ctx, or nil. The handle carries ctx.
func DB(ctx context.Context) *gorm.DB {
	conn, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return conn.DB.WithContext(ctx)
}

// DBFromContext is DB with an error for a missing connection.
func DBFromContext(ctx context.Context) (*gorm.DB, error) {
	db := DB(ctx)
	if db == nil {
		return nil, ErrNoConnection
	}
	return db, nil
}
