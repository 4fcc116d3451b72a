package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

// ErrKeySetUnavailable is returned when the signing keys cannot be fetched.
var ErrKeySetUnavailable = errors.New("signing key set unavailable")

const defaultFetchTimeout = 5 * time.Second

// KeySource resolves a signing key by its key identifier. Implementations
// return domain.ErrInvalidKey when no key with that id is published.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// JWKSSource fetches the provider's JWKS document on every lookup.
type JWKSSource struct {
	url    string
	client *http.Client
}

// NewJWKSSource returns a source reading url. A nil client gets one with a
// bounded timeout so a hanging provider cannot pin a request worker.
func NewJWKSSource(url string, client *http.Client) *JWKSSource {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &JWKSSource{url: url, client: client}
}

// CertsURL is the Keycloak JWKS location for a realm.
func CertsURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", baseURL, realm)
}

func (s *JWKSSource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys[kid]
	if !ok {
		return nil, domain.ErrInvalidKey
	}
	return key, nil
}

// Fetch downloads and decodes the full key set.
func (s *JWKSSource) Fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrKeySetUnavailable, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrKeySetUnavailable, err)
	}
	return doc.rsaKeys(), nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// rsaKeys skips entries that are not usable RSA signing keys.
func (d jwksDocument) rsaKeys() map[string]*rsa.PublicKey {
	out := make(map[string]*rsa.PublicKey, len(d.Keys))
	for _, k := range d.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			continue
		}
		out[k.Kid] = pub
	}
	return out
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if len(nBytes) == 0 || !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, errors.New("malformed rsa key")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

// CachedKeySource keeps the last fetched key set for ttl. A kid that is not
// in the cached set forces a refetch, so rotated keys are picked up
// immediately and unknown keys are still rejected.
type CachedKeySource struct {
	source *JWKSSource
	ttl    time.Duration
	clock  clock.Clock

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewCachedKeySource(source *JWKSSource, ttl time.Duration, clk clock.Clock) *CachedKeySource {
	return &CachedKeySource{source: source, ttl: ttl, clock: clk}
}

func (c *CachedKeySource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.keys != nil && now.Sub(c.fetchedAt) < c.ttl {
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
	}

	keys, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.keys = keys
	c.fetchedAt = now

	key, ok := keys[kid]
	if !ok {
		return nil, domain.ErrInvalidKey
	}
	return key, nil
}
