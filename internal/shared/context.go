package shared

import "context"

// Role enumerates user roles known to the system.
type Role string

const (
	// RoleAdmin grants approval and catalog management rights.
	RoleAdmin Role = "ADMIN"
	// RoleStaff may browse stock and raise stock-out requests.
	RoleStaff Role = "STAFF"
)

// Identity describes the authenticated caller of a request.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
