package pg

import "time"

// Config describes the tenant-common (landlord) database.
type Config struct {
	ConnectionString  string        `env:"LANDLORD_DB_URL,required"`
	MaxOpenConns      int32         `env:"LANDLORD_DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"LANDLORD_DB_MAX_IDLE_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"LANDLORD_DB_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"LANDLORD_DB_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"LANDLORD_DB_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"LANDLORD_DB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"LANDLORD_DB_RETRY_INTERVAL" envDefault:"2s"`

	MigrationsPath  string `env:"LANDLORD_DB_MIGRATIONS_PATH" envDefault:"migrations/landlord"`
	MigrationsTable string `env:"LANDLORD_DB_MIGRATIONS_TABLE" envDefault:"landlord_migrations"`
}
