package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/eventflow/platform/internal/domain"
)

// Identity is the verified subject of a credential and its realm roles.
type Identity struct {
	Subject string
	Roles   []string
}

// HasRole reports whether role is among the identity's roles.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// RequireAnyRole fails with domain.ErrInsufficientPermissions unless the
// identity holds one of the accepted roles.
func RequireAnyRole(id Identity, accepted ...string) error {
	if !id.HasAnyRole(accepted...) {
		return domain.ErrInsufficientPermissions
	}
	return nil
}

// RequireSelfOrRole allows the call when the identity is subject itself or
// holds one of the accepted roles.
func RequireSelfOrRole(id Identity, subject string, accepted ...string) error {
	if id.Subject == subject {
		return nil
	}
	return RequireAnyRole(id, accepted...)
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrMissingCredential
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingCredential
	}
	return token, nil
}
