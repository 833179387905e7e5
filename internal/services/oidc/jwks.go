// Package oidc verifies operator bearer tokens against an identity provider's JWKS.
package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultJWKSTTL is how long a fetched key set is trusted before refetching
const DefaultJWKSTTL = time.Hour

type cachedSet struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches and caches key sets per URL
type JWKSManager struct {
	mu         sync.RWMutex
	cache      map[string]cachedSet
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewJWKSManager creates a manager. A nil httpClient gets a 10s timeout client.
func NewJWKSManager(httpClient *http.Client) *JWKSManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSManager{
		cache:      make(map[string]cachedSet),
		ttl:        DefaultJWKSTTL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// GetJWKS returns the key set at jwksURL, from cache while fresh.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expires) {
		return entry.keys, nil
	}

	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		// Serve the stale set while the IdP is unreachable.
		if ok {
			return entry.keys, nil
		}
		return nil, err
	}

	m.mu.Lock()
	m.cache[jwksURL] = cachedSet{keys: keys, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return keys, nil
}

// Invalidate drops a cached set so the next lookup refetches, e.g. after an unknown kid.
func (m *JWKSManager) Invalidate(jwksURL string) {
	m.mu.Lock()
	delete(m.cache, jwksURL)
	m.mu.Unlock()
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
