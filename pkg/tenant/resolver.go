package tenant

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Rule names the resolution rule that produced a match.
type Rule string

const (
	RuleSubdomain Rule = "subdomain"
	RuleDomain    Rule = "domain"
	RuleHeader    Rule = "header"
	RuleSchool    Rule = "school"
)

const (
	DefaultTenantHeader = "X-Tenant-ID"
	DefaultSchoolHeader = "X-School-ID"
	DefaultSchoolParam  = "school_id"
)

// labelPattern accepts a single DNS label.
var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Match is a successful resolution.
type Match struct {
	Tenant *Tenant
	// School is set when the tenant was found through the school directory.
	School *School
	Rule   Rule
}

// Resolver determines which tenant a request belongs to.
// It returns ErrTenantNotFound when it cannot match the request.
type Resolver interface {
	Resolve(r *http.Request) (*Match, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (*Match, error)

func (f ResolverFunc) Resolve(r *http.Request) (*Match, error) {
	return f(r)
}

// NormalizeHost lowercases host and strips the port and a trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

// SubdomainFromHost returns the leftmost label of host when host has at least
// three dot-separated labels. IP literals and labels that are not DNS-safe
// yield an empty string.
func SubdomainFromHost(host string) string {
	host = NormalizeHost(host)
	if host == "" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}

	label := labels[0]
	if !labelPattern.MatchString(label) {
		return ""
	}
	return label
}

// NewSubdomainResolver matches the request host's leftmost label against
// active tenant subdomains.
func NewSubdomainResolver(store Store) Resolver {
	return ResolverFunc(func(r *http.Request) (*Match, error) {
		sub := SubdomainFromHost(r.Host)
		if sub == "" {
			return nil, ErrTenantNotFound
		}

		t, err := store.ActiveBySubdomain(r.Context(), sub)
		if err != nil {
			return nil, err
		}
		return &Match{Tenant: t, Rule: RuleSubdomain}, nil
	})
}

// NewDomainResolver matches the full request host against tenant custom domains.
func NewDomainResolver(store Store) Resolver {
	return ResolverFunc(func(r *http.Request) (*Match, error) {
		host := NormalizeHost(r.Host)
		if host == "" {
			return nil, ErrTenantNotFound
		}

		t, err := store.ByDomain(r.Context(), host)
		if err != nil {
			return nil, err
		}
		return &Match{Tenant: t, Rule: RuleDomain}, nil
	})
}

// NewHeaderResolver reads a tenant id from header. Defaults to "X-Tenant-ID".
func NewHeaderResolver(header string, store Store) Resolver {
	if header == "" {
		header = DefaultTenantHeader
	}

	return ResolverFunc(func(r *http.Request) (*Match, error) {
		id, err := parseID(r.Header.Get(header))
		if err != nil {
			return nil, err
		}
		if id == uuid.Nil {
			return nil, ErrTenantNotFound
		}

		t, err := store.ByID(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return &Match{Tenant: t, Rule: RuleHeader}, nil
	})
}

// NewSchoolResolver reads a school id from header or the query parameter
// param and resolves the owning tenant through the school directory. Both
// lookups hit the tenant-common database, before any tenant connection exists.
func NewSchoolResolver(header, param string, schools SchoolDirectory, store Store) Resolver {
	if header == "" {
		header = DefaultSchoolHeader
	}
	if param == "" {
		param = DefaultSchoolParam
	}

	return ResolverFunc(func(r *http.Request) (*Match, error) {
		raw := r.Header.Get(header)
		if strings.TrimSpace(raw) == "" {
			raw = r.URL.Query().Get(param)
		}

		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		if id == uuid.Nil {
			return nil, ErrTenantNotFound
		}

		school, err := schools.SchoolByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrSchoolNotFound) {
				return nil, ErrTenantNotFound
			}
			return nil, err
		}

		t, err := store.ByID(r.Context(), school.TenantID)
		if err != nil {
			return nil, err
		}
		return &Match{Tenant: t, School: school, Rule: RuleSchool}, nil
	})
}

// NewChainResolver tries resolvers in order and returns the first match.
// ErrTenantNotFound moves on to the next resolver; any other error stops
// resolution.
func NewChainResolver(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(r *http.Request) (*Match, error) {
		for _, resolver := range resolvers {
			m, err := resolver.Resolve(r)
			if err == nil && m != nil && m.Tenant != nil {
				return m, nil
			}
			if err != nil && !errors.Is(err, ErrTenantNotFound) {
				return nil, err
			}
		}
		return nil, ErrTenantNotFound
	})
}

// NewDefaultResolver builds the fixed precedence chain:
// subdomain, custom domain, tenant header, then school header/query parameter.
func NewDefaultResolver(cfg Config, store Store, schools SchoolDirectory) Resolver {
	return NewChainResolver(
		NewSubdomainResolver(store),
		NewDomainResolver(store),
		NewHeaderResolver(cfg.TenantHeader, store),
		NewSchoolResolver(cfg.SchoolHeader, cfg.SchoolParam, schools, store),
	)
}

// parseID returns uuid.Nil and no error for empty input.
func parseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id, nil
}
