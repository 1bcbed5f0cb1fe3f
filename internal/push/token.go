package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// expirySkew: a cached token stops being served this long before its
	// actual expiry, absorbing transmission latency on the final send.
	expirySkew = 60 * time.Second

	// defaultTokenLifetime applies when the token response omits expires_in.
	defaultTokenLifetime = 3600 * time.Second

	httpTimeout = 10 * time.Second
)

// accessToken is the single cache slot: one value and its absolute expiry.
type accessToken struct {
	value     string
	expiresAt time.Time
}

// valid reports whether the token can still be served at time t.
func (t accessToken) valid(at time.Time) bool {
	return t.value != "" && at.Before(t.expiresAt.Add(-expirySkew))
}

// TokenSource exchanges signed service-account assertions for short-lived
// access tokens and caches the most recent one. The cache holds at most one
// token; concurrent refreshes are collapsed into a single token-endpoint call.
type TokenSource struct {
	signer     *assertionSigner
	httpClient *http.Client
	tokenURL   string
	now        func() time.Time

	mu     sync.Mutex
	cached accessToken

	group singleflight.Group
}

// TokenSourceOption customizes a TokenSource (used by tests to point at a
// fake endpoint and a controllable clock).
type TokenSourceOption func(*TokenSource)

func WithTokenURL(u string) TokenSourceOption {
	return func(ts *TokenSource) { ts.tokenURL = u }
}

func WithClock(now func() time.Time) TokenSourceOption {
	return func(ts *TokenSource) { ts.now = now }
}

func WithHTTPClient(c *http.Client) TokenSourceOption {
	return func(ts *TokenSource) { ts.httpClient = c }
}

// NewTokenSource builds a TokenSource for the given service account.
// Fails if the private key cannot be parsed.
func NewTokenSource(creds Credentials, opts ...TokenSourceOption) (*TokenSource, error) {
	ts := &TokenSource{
		httpClient: &http.Client{Timeout: httpTimeout},
		tokenURL:   tokenEndpoint,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}

	signer, err := newAssertionSigner(creds.ClientEmail, creds.PrivateKey, ts.tokenURL, ts.now)
	if err != nil {
		return nil, err
	}
	ts.signer = signer
	return ts, nil
}

// Token returns a valid access token, serving the cached one when it is more
// than 60 seconds from expiry and refreshing otherwise. On refresh failure
// the cache is left untouched and the error is returned; callers treat that
// as "skip this notification round".
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	now := ts.now()

	ts.mu.Lock()
	if ts.cached.valid(now) {
		token := ts.cached.value
		ts.mu.Unlock()
		return token, nil
	}
	ts.mu.Unlock()

	// Collapse concurrent refreshes into one token-endpoint call. Tokens are
	// interchangeable, so every waiter can share the winner's result.
	v, err, _ := ts.group.Do("refresh", func() (interface{}, error) {
		return ts.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh signs a fresh assertion, exchanges it at the token endpoint, and
// replaces the cache slot on success.
func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	assertion, err := ts.signer.Sign()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	lifetime := defaultTokenLifetime
	if parsed.ExpiresIn > 0 {
		lifetime = time.Duration(parsed.ExpiresIn) * time.Second
	}

	ts.mu.Lock()
	ts.cached = accessToken{
		value:     parsed.AccessToken,
		expiresAt: ts.now().Add(lifetime),
	}
	ts.mu.Unlock()

	return parsed.AccessToken, nil
}
