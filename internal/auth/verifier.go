package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

// Verifier checks bearer credentials against a trusted issuer.
type Verifier struct {
	keys     KeySource
	issuer   string
	audience string
	clock    clock.Clock
}

type VerifierOption func(*Verifier)

// WithAudience additionally requires the aud claim to contain audience.
func WithAudience(audience string) VerifierOption {
	return func(v *Verifier) {
		v.audience = audience
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(clk clock.Clock) VerifierOption {
	return func(v *Verifier) {
		if clk != nil {
			v.clock = clk
		}
	}
}

func NewVerifier(keys KeySource, issuer string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keys:   keys,
		issuer: issuer,
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IssuerURL is the iss claim Keycloak puts in tokens for a realm.
func IssuerURL(publicBaseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s", publicBaseURL, realm)
}

type claims struct {
	jwt.RegisteredClaims
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// Verify validates raw and returns the identity it asserts. Failures are
// domain.ErrInvalidKey, domain.ErrExpiredCredential,
// domain.ErrInvalidCredential or ErrKeySetUnavailable.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, domain.ErrMissingCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, domain.ErrInvalidKey
		}
		return v.keys.Key(ctx, kid)
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, ErrKeySetUnavailable):
			return Identity{}, ErrKeySetUnavailable
		case errors.Is(err, domain.ErrInvalidKey):
			return Identity{}, domain.ErrInvalidKey
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, domain.ErrExpiredCredential
		default:
			return Identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
		}
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidCredential)
	}

	return Identity{
		Subject: c.Subject,
		Roles:   c.RealmAccess.Roles,
	}, nil
}
