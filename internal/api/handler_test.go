package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecgard/wayfare/internal/auth"
	"github.com/alecgard/wayfare/internal/metrics"
	"github.com/alecgard/wayfare/internal/ratelimit"
	"github.com/alecgard/wayfare/internal/trip"
	"github.com/alecgard/wayfare/internal/user"
)

// newTestRouter builds a router with real middleware but no database behind
// it. Tests drive only the paths that fail before touching storage: auth
// rejection, validation, rate limiting, and the static endpoints.
func newTestRouter(loginLimit int, pingDB func(context.Context) error) http.Handler {
	return NewRouter(RouterDeps{
		TripService:    trip.NewService(nil, nil),
		UserStore:      &user.Store{},
		Tokens:         auth.NewTokens("test-secret", time.Hour),
		LoginLimiter:   ratelimit.New(loginLimit, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"https://app.example.com"},
		PingDB:         pingDB,
	})
}

func doRequest(handler http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return env
}

// --- health and manifest ---

func TestHealthCheck(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestHealthCheck_DegradedDB(t *testing.T) {
	handler := newTestRouter(10, func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	rec := doRequest(handler, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("expected degraded status, got %s", rec.Body.String())
	}
}

func TestWellKnownHandler(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodGet, "/.well-known/wayfare.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var manifest map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}

	for _, field := range []string{"name", "description", "version", "api_base", "auth", "endpoints", "health"} {
		if _, ok := manifest[field]; !ok {
			t.Errorf("manifest missing required field %q", field)
		}
	}
	if name, _ := manifest["name"].(string); name != "Wayfare" {
		t.Errorf("expected name=Wayfare, got %q", name)
	}
}

// --- middleware ---

func TestCORSPreflight(t *testing.T) {
	handler := newTestRouter(10, nil)

	h := http.Header{}
	h.Set("Origin", "https://app.example.com")
	h.Set("Access-Control-Request-Method", "POST")
	rec := doRequest(handler, http.MethodOptions, "/api/v1/trips", "", h)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Access-Control-Allow-Methods header")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	handler := newTestRouter(10, nil)

	h := http.Header{}
	h.Set("Origin", "https://evil.example.com")
	rec := doRequest(handler, http.MethodGet, "/health", "", h)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin should get no ACAO header, got %q", got)
	}
}

func TestRequestIDEcho(t *testing.T) {
	handler := newTestRouter(10, nil)

	h := http.Header{}
	h.Set("X-Request-ID", "client-supplied-id")
	rec := doRequest(handler, http.MethodGet, "/health", "", h)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("expected request id echoed, got %q", got)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id header")
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodGet, "/health", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

// --- auth gating ---

func TestProtectedRoutesRequireAuth(t *testing.T) {
	handler := newTestRouter(10, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/trips"},
		{http.MethodPost, "/api/v1/trips"},
		{http.MethodGet, "/api/v1/trips/5bb1ba3e-0bff-4d6a-8a56-6b2b4f38a9d8"},
		{http.MethodGet, "/api/v1/trips/5bb1ba3e-0bff-4d6a-8a56-6b2b4f38a9d8/members"},
		{http.MethodGet, "/api/v1/trips/5bb1ba3e-0bff-4d6a-8a56-6b2b4f38a9d8/activities"},
		{http.MethodGet, "/api/v1/users/me/profile"},
		{http.MethodGet, "/api/v1/auth/me"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := doRequest(handler, rt.method, rt.path, "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 without token, got %d", rec.Code)
			}
			env := decodeError(t, rec)
			if env.Error.Code != "unauthorized" {
				t.Errorf("expected code unauthorized, got %q", env.Error.Code)
			}
		})
	}
}

func TestProtectedRouteRejectsForgedToken(t *testing.T) {
	handler := newTestRouter(10, nil)

	// Signed with a different secret than the router's.
	forged, _, err := auth.NewTokens("other-secret", time.Hour).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+forged)
	rec := doRequest(handler, http.MethodGet, "/api/v1/trips", "", h)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for forged token, got %d", rec.Code)
	}
}

// --- login validation and rate limiting ---

func TestLogin_MissingFields(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodPost, "/api/v1/auth/login", `{}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Error.Code != "validation_failed" {
		t.Errorf("expected code validation_failed, got %q", env.Error.Code)
	}
}

func TestLogin_BadBody(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodPost, "/api/v1/auth/login", `{{{`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	handler := newTestRouter(2, nil)

	for i := 0; i < 2; i++ {
		rec := doRequest(handler, http.MethodPost, "/api/v1/auth/login", `{}`, nil)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d should not be rate limited", i+1)
		}
	}

	rec := doRequest(handler, http.MethodPost, "/api/v1/auth/login", `{}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Error.Code != "rate_limited" {
		t.Errorf("expected code rate_limited, got %q", env.Error.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header on rejection")
	}
}

// --- register validation ---

func TestRegister_Validation(t *testing.T) {
	handler := newTestRouter(10, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad body", `not json`, http.StatusBadRequest},
		{"missing email", `{"username":"maya","password":"longenough"}`, http.StatusUnprocessableEntity},
		{"invalid email", `{"email":"nope","username":"maya","password":"longenough"}`, http.StatusUnprocessableEntity},
		{"missing username", `{"email":"maya@example.com","password":"longenough"}`, http.StatusUnprocessableEntity},
		{"short password", `{"email":"maya@example.com","username":"maya","password":"short"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/api/v1/auth/register", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

// --- error mapping ---

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantName string
	}{
		{trip.ErrTripNotFound, http.StatusNotFound, "trip_not_found"},
		{trip.ErrMemberNotFound, http.StatusNotFound, "member_not_found"},
		{trip.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{trip.ErrForbidden, http.StatusForbidden, "forbidden"},
		{trip.ErrAlreadyMember, http.StatusConflict, "already_member"},
		{trip.ErrCreatorImmutable, http.StatusConflict, "creator_immutable"},
		{trip.ErrTitleRequired, http.StatusUnprocessableEntity, "validation_failed"},
		{trip.ErrDateRange, http.StatusUnprocessableEntity, "validation_failed"},
		{trip.ErrStatusInvalid, http.StatusUnprocessableEntity, "validation_failed"},
		{user.ErrNotFound, http.StatusNotFound, "user_not_found"},
		{user.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{user.ErrUsernameTaken, http.StatusConflict, "username_taken"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName+"/"+tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var env errorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.wantName {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantName)
			}
		})
	}
}

// --- metrics endpoints ---

func TestMetricsEndpoints(t *testing.T) {
	handler := newTestRouter(10, nil)

	rec := doRequest(handler, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wayfare_") {
		t.Error("expected wayfare_ metrics in exposition output")
	}

	rec = doRequest(handler, http.MethodGet, "/metrics/summary", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics/summary, got %d", rec.Code)
	}
	var summary map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	for _, section := range []string{"http", "auth", "rateLimit", "trips", "db", "server"} {
		if _, ok := summary[section]; !ok {
			t.Errorf("summary missing section %q", section)
		}
	}
}

// --- helpers ---

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		query     string
		wantSkip  int
		wantLimit int
	}{
		{"", 0, 100},
		{"?skip=20&limit=50", 20, 50},
		{"?skip=-5&limit=0", 0, 100},
		{"?limit=9999", 0, 100},
		{"?skip=abc&limit=xyz", 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trips"+tt.query, nil)
			skip, limit := paginationParams(req)
			if skip != tt.wantSkip || limit != tt.wantLimit {
				t.Errorf("paginationParams() = (%d, %d), want (%d, %d)", skip, limit, tt.wantSkip, tt.wantLimit)
			}
		})
	}
}
