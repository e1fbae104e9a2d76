package tenantdb

import "time"

// Config holds the process-wide defaults used when a tenant record leaves
// connection attributes empty, plus pool and migration settings.
type Config struct {
	Driver   string `env:"TENANT_DB_DRIVER" envDefault:"mysql"`
	Host     string `env:"TENANT_DB_HOST" envDefault:"127.0.0.1"`
	Port     int    `env:"TENANT_DB_PORT" envDefault:"3306"`
	Username string `env:"TENANT_DB_USERNAME" envDefault:"root"`
	Password string `env:"TENANT_DB_PASSWORD"`

	// MaxPools caps how many tenant pools stay open; the least recently used
	// pool is closed when the cap is exceeded.
	MaxPools        int           `env:"TENANT_DB_MAX_POOLS" envDefault:"100"`
	MaxOpenConns    int           `env:"TENANT_DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"TENANT_DB_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"TENANT_DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"TENANT_DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`

	MigrationsPath string `env:"TENANT_DB_MIGRATIONS_PATH" envDefault:"migrations/tenant"`
	SeedsPath      string `env:"TENANT_DB_SEEDS_PATH" envDefault:"migrations/tenant/seeds"`
}
