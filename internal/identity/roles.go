package identity

import (
	"sort"
	"strings"
)

// RoutePolicy maps route prefixes to the minimum role required to call them.
// Lookup uses longest-prefix match so specific routes can tighten (or relax)
// what a broader prefix requires.
type RoutePolicy struct {
	defaultRole Role
	prefixes    []routeRule
}

type routeRule struct {
	prefix string
	role   Role
}

// NewRoutePolicy builds a policy with the given default minimum role.
func NewRoutePolicy(defaultRole Role, rules map[string]Role) *RoutePolicy {
	p := &RoutePolicy{defaultRole: defaultRole}
	for prefix, role := range rules {
		p.prefixes = append(p.prefixes, routeRule{prefix: prefix, role: role})
	}
	// Longest prefix first so the most specific rule wins.
	sort.Slice(p.prefixes, func(i, j int) bool {
		return len(p.prefixes[i].prefix) > len(p.prefixes[j].prefix)
	})
	return p
}

// RequiredRole returns the minimum role for the given request path.
func (p *RoutePolicy) RequiredRole(path string) Role {
	for _, rule := range p.prefixes {
		if strings.HasPrefix(path, rule.prefix) {
			return rule.role
		}
	}
	return p.defaultRole
}

// AdminRoutePolicy is the default policy for the admin gateway: everything
// requires the admin role except read-only directory management views, which
// editors may use.
func AdminRoutePolicy() *RoutePolicy {
	return NewRoutePolicy(RoleAdmin, map[string]Role{
		"/api/services":   RoleEditor,
		"/api/facilities": RoleEditor,
	})
}
