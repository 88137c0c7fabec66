package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/golang-jwt/jwt/v5"
)

const googleSecureTokenCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const defaultCertMaxAge = time.Hour

// GoogleCertSource implements KeySource using the x509 certificates Google
// publishes for Firebase ID tokens. Certificates are cached for the max-age
// announced in the Cache-Control response header.
type GoogleCertSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// NewGoogleCertSource creates a cert source. An empty url uses the public
// securetoken endpoint.
func NewGoogleCertSource(url string, timeout time.Duration) *GoogleCertSource {
	if url == "" {
		url = googleSecureTokenCertsURL
	}
	return &GoogleCertSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// PublicKey returns the key for kid, refreshing the cache when stale.
func (g *GoogleCertSource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys == nil || !g.now().Before(g.expiresAt) {
		if err := g.refresh(ctx); err != nil {
			return nil, &port.UpstreamError{Service: "identity provider", Err: err}
		}
	}

	key, ok := g.keys[kid]
	if !ok {
		return nil, fmt.Errorf("google: unknown key id %q", kid)
	}
	return key, nil
}

func (g *GoogleCertSource) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return fmt.Errorf("google: create certs request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google: fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google: certs fetch failed (%d): %s", resp.StatusCode, string(body))
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("google: decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return fmt.Errorf("google: parse cert %q: %w", kid, err)
		}
		keys[kid] = key
	}

	g.keys = keys
	g.expiresAt = g.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return nil
}

// maxAge extracts max-age from a Cache-Control header value.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if v, ok := strings.CutPrefix(directive, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultCertMaxAge
}
