package auth

import (
	"context"
	"slices"
	"strings"
)

// Identity is the acting user threaded into every mutating call.
type Identity struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Valid reports whether the identity names a user.
func (i Identity) Valid() bool {
	return i.UserID > 0
}

// HasRole reports whether the identity holds one of roles. An empty list admits everyone.
func (i Identity) HasRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, strings.ToLower(i.Role))
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
