package techlog

// The two guard functions below are the only role-enforcement points in the
// system. Every mutating operation routes through exactly one of them with
// an explicitly passed identity before touching storage.

// RequireAuthenticated returns the identity, or ErrUnauthenticated when the
// caller could not be resolved. No role check is performed.
func RequireAuthenticated(ident *Identity) (*Identity, error) {
	if ident == nil {
		return nil, ErrUnauthenticated
	}
	return ident, nil
}

// RequireAdmin returns the identity when it holds the ADMIN role.
// An unresolved caller fails with ErrUnauthenticated, a resolved non-admin
// with ErrForbidden, so an HTTP binding can answer 401 vs 403.
func RequireAdmin(ident *Identity) (*Identity, error) {
	if ident == nil {
		return nil, ErrUnauthenticated
	}
	if ident.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return ident, nil
}
