package auth

import (
	"time"

	"github.com/eventflow/platform/internal/clock"
)

// KeycloakConfig locates a realm. BaseURL is where the service reaches the
// provider; PublicURL is the base clients see and that appears in iss.
type KeycloakConfig struct {
	BaseURL   string
	PublicURL string
	Realm     string
	ClientID  string
	CacheTTL  time.Duration
}

// NewKeycloakVerifier wires a Verifier to a realm's JWKS endpoint. Keys are
// fetched per call unless CacheTTL is positive. An empty ClientID skips the
// audience check.
func NewKeycloakVerifier(cfg KeycloakConfig, opts ...VerifierOption) *Verifier {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.BaseURL
	}

	source := NewJWKSSource(CertsURL(cfg.BaseURL, cfg.Realm), nil)
	var keys KeySource = source
	if cfg.CacheTTL > 0 {
		keys = NewCachedKeySource(source, cfg.CacheTTL, clock.NewSystem())
	}
	if cfg.ClientID != "" {
		opts = append([]VerifierOption{WithAudience(cfg.ClientID)}, opts...)
	}
	return NewVerifier(keys, IssuerURL(publicURL, cfg.Realm), opts...)
}
