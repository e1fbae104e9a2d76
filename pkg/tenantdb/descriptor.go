package tenantdb

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"

	"github.com/samschool/tenancy/pkg/tenant"
)

const (
	// ConnectionName is the logical name every tenant connection is bound under.
	ConnectionName = "tenant"

	DriverMySQL = "mysql"

	Charset   = "utf8mb4"
	Collation = "utf8mb4_unicode_ci"
)

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("dbname", func(fl validator.FieldLevel) bool {
		return databaseNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Descriptor is the full set of connection attributes for one tenant's
// database. It is built per request and never persisted.
type Descriptor struct {
	Name      string `validate:"required,eq=tenant"`
	Driver    string `validate:"required,eq=mysql"`
	Host      string `validate:"required,hostname_rfc1123|ip"`
	Port      int    `validate:"required,min=1,max=65535"`
	Database  string `validate:"required,dbname"`
	Username  string `validate:"required,max=32"`
	Password  string
	Charset   string `validate:"required"`
	Collation string `validate:"required"`
}

// NewDescriptor builds the descriptor for t. Host, port, username and
// password fall back to defaults when the tenant record leaves them empty.
func NewDescriptor(t *tenant.Tenant, defaults Config) (Descriptor, error) {
	if t == nil {
		return Descriptor{}, errors.Join(ErrInvalidDescriptor, tenant.ErrNoTenantInContext)
	}

	p := t.Database
	d := Descriptor{
		Name:      ConnectionName,
		Driver:    strings.ToLower(firstNonEmpty(p.Driver, defaults.Driver, DriverMySQL)),
		Host:      firstNonEmpty(p.Host, defaults.Host),
		Port:      p.Port,
		Database:  p.Name,
		Username:  firstNonEmpty(p.Username, defaults.Username),
		Password:  firstNonEmpty(p.Password, defaults.Password),
		Charset:   Charset,
		Collation: Collation,
	}
	if d.Port == 0 {
		d.Port = defaults.Port
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate reports ErrUnsupportedDriver for drivers other than MySQL and
// ErrInvalidDescriptor for any other invalid attribute.
func (d Descriptor) Validate() error {
	if d.Driver != DriverMySQL {
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, d.Driver)
	}
	if err := validate.Struct(d); err != nil {
		return errors.Join(ErrInvalidDescriptor, err)
	}
	return nil
}

// Addr is host:port.
func (d Descriptor) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d Descriptor) mysqlConfig(database string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = d.Username
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Addr()
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Collation = d.Collation
	cfg.Params = map[string]string{"charset": d.Charset}
	return cfg
}

// DSN renders a go-sql-driver/mysql data source name for the tenant database.
func (d Descriptor) DSN() string {
	return d.mysqlConfig(d.Database).FormatDSN()
}

// ServerDSN renders a DSN without a database, for CREATE/DROP DATABASE.
func (d Descriptor) ServerDSN() string {
	return d.mysqlConfig("").FormatDSN()
}

// MigrateURL renders the golang-migrate database URL for the tenant database.
func (d Descriptor) MigrateURL() string {
	cfg := d.mysqlConfig(d.Database)
	cfg.MultiStatements = true
	return "mysql://" + cfg.FormatDSN()
}

// Key identifies the physical target. Two descriptors share a pool only when
// their keys are equal.
func (d Descriptor) Key() string {
	return strings.Join([]string{d.Driver, d.Username, d.Addr(), d.Database}, "|")
}

// LogValue keeps the password out of logs.
func (d Descriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", d.Driver),
		slog.String("addr", d.Addr()),
		slog.String("database", d.Database),
		slog.String("username", d.Username),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
