package shared

import (
	"context"

	"github.com/google/uuid"
)

// Identity describes the already-authenticated actor attached to a request.
// Verification happens upstream; the domain layer only checks capabilities.
type Identity struct {
	UserID      uuid.UUID
	Username    string
	Roles       []string
	Permissions []string
}

// Can reports whether the identity holds the named permission.
func (id *Identity) Can(perm string) bool {
	if id == nil {
		return false
	}
	for _, granted := range id.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
