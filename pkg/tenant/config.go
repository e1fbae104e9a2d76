package tenant

import "time"

// Config holds request resolution settings.
type Config struct {
	TenantHeader string        `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	SchoolHeader string        `env:"TENANT_SCHOOL_HEADER" envDefault:"X-School-ID"`
	SchoolParam  string        `env:"TENANT_SCHOOL_PARAM" envDefault:"school_id"`
	CacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	CacheSize    int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
	SkipPaths    []string      `env:"TENANT_SKIP_PATHS" envDefault:"/healthz,/readyz" envSeparator:","`
}
