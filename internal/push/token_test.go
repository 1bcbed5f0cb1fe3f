package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTokenEndpoint stands in for the OAuth token endpoint and counts calls.
type fakeTokenEndpoint struct {
	calls    int64
	respond  func(w http.ResponseWriter, r *http.Request)
	lastForm map[string][]string
}

func (f *fakeTokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.calls, 1)
		if err := r.ParseForm(); err == nil {
			f.lastForm = r.PostForm
		}
		f.respond(w, r)
	}
}

func (f *fakeTokenEndpoint) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

func newTestTokenSource(t *testing.T, endpoint *fakeTokenEndpoint, now *time.Time) *TokenSource {
	t.Helper()

	privatePEM, _ := generateTestKey(t)
	srv := httptest.NewServer(endpoint.handler())
	t.Cleanup(srv.Close)

	ts, err := NewTokenSource(
		Credentials{ProjectID: "proj", ClientEmail: "svc@proj.iam.gserviceaccount.com", PrivateKey: privatePEM},
		WithTokenURL(srv.URL),
		WithClock(func() time.Time { return *now }),
	)
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}
	return ts
}

func TestTokenSource_CacheHit(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	endpoint := &fakeTokenEndpoint{
		respond: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		},
	}
	ts := newTestTokenSource(t, endpoint, &now)
	ctx := context.Background()

	first, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("first Token: %v", err)
	}
	if first != "tok-1" {
		t.Errorf("first token = %q, want tok-1", first)
	}

	// Still inside the validity window (expiry - 60s not reached): no call.
	now = now.Add(30 * time.Minute)
	second, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("second Token: %v", err)
	}
	if second != first {
		t.Errorf("cache hit returned %q, want the cached %q", second, first)
	}
	if got := endpoint.callCount(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}
}

func TestTokenSource_CacheMissAfterSkew(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	var counter int64
	endpoint := &fakeTokenEndpoint{}
	endpoint.respond = func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&counter, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		} else {
			w.Write([]byte(`{"access_token":"tok-2","expires_in":3600}`))
		}
	}
	ts := newTestTokenSource(t, endpoint, &now)
	ctx := context.Background()

	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("first Token: %v", err)
	}

	// 59m30s in: inside the 60s skew window before the 1h expiry, so the
	// cached token is no longer served.
	now = now.Add(59*time.Minute + 30*time.Second)
	tok, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("second Token: %v", err)
	}
	if tok != "tok-2" {
		t.Errorf("refreshed token = %q, want tok-2", tok)
	}
	if got := endpoint.callCount(); got != 2 {
		t.Errorf("token endpoint called %d times, want 2", got)
	}
}

func TestTokenSource_DefaultLifetime(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	endpoint := &fakeTokenEndpoint{
		respond: func(w http.ResponseWriter, r *http.Request) {
			// expires_in omitted: 3600s default applies
			w.Write([]byte(`{"access_token":"tok-1"}`))
		},
	}
	ts := newTestTokenSource(t, endpoint, &now)
	ctx := context.Background()

	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}

	now = now.Add(58 * time.Minute)
	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("Token within default window: %v", err)
	}
	if got := endpoint.callCount(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1 (default 3600s lifetime)", got)
	}
}

func TestTokenSource_ExchangeFailureLeavesCacheUntouched(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	var failing atomic.Bool
	endpoint := &fakeTokenEndpoint{}
	endpoint.respond = func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}
	ts := newTestTokenSource(t, endpoint, &now)
	ctx := context.Background()

	if _, err := ts.Token(ctx); err != nil {
		t.Fatalf("initial Token: %v", err)
	}

	// Force a refresh that fails; the error must surface and no token leak out.
	failing.Store(true)
	now = now.Add(2 * time.Hour)
	if _, err := ts.Token(ctx); err == nil {
		t.Fatal("expected error from failing token endpoint")
	}

	// Endpoint recovers; next call succeeds again.
	failing.Store(false)
	tok, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("Token after recovery: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q, want tok-1", tok)
	}
}

func TestTokenSource_MissingAccessTokenField(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	endpoint := &fakeTokenEndpoint{
		respond: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expires_in":3600}`))
		},
	}
	ts := newTestTokenSource(t, endpoint, &now)

	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error when access_token is absent")
	}
}

func TestTokenSource_SendsJWTBearerGrant(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	endpoint := &fakeTokenEndpoint{
		respond: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		},
	}
	ts := newTestTokenSource(t, endpoint, &now)

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	grant := endpoint.lastForm["grant_type"]
	if len(grant) != 1 || grant[0] != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		t.Errorf("grant_type = %v, want jwt-bearer urn", grant)
	}
	if assertion := endpoint.lastForm["assertion"]; len(assertion) != 1 || assertion[0] == "" {
		t.Error("assertion form field missing or empty")
	}
}
