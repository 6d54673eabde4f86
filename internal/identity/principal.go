// Package identity carries the caller identity extracted from an already
// validated credential through the request context, plus the role model used
// for authorization decisions.
package identity

import "context"

// Role is an ordered privilege level. Higher ranks include lower ones.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether this role meets or exceeds the required role.
// Unknown roles never satisfy anything.
func (r Role) Satisfies(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[required]
	if !ok {
		return false
	}
	return have >= want
}

// Principal is the caller identity for one request. The zero value is the
// anonymous caller.
type Principal struct {
	UserID        string
	UserName      string
	SessionID     string
	Roles         []Role
	Authenticated bool
}

// Anonymous is the identity attached to requests without a validated credential.
var Anonymous = Principal{}

// IsAnonymous reports whether the principal carries no validated identity.
func (p Principal) IsAnonymous() bool {
	return !p.Authenticated
}

// HasRole reports whether any of the principal's roles satisfies the required role.
func (p Principal) HasRole(required Role) bool {
	for _, r := range p.Roles {
		if r.Satisfies(required) {
			return true
		}
	}
	return false
}

type principalKey struct{}

// ContextKeyPrincipal is exported for tests that need context.WithValue.
var ContextKeyPrincipal = principalKey{}

// FromContext retrieves the caller principal from the context.
// Returns Anonymous if no principal was attached.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ContextKeyPrincipal).(Principal); ok {
		return p
	}
	return Anonymous
}

// WithPrincipal injects a principal into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}
