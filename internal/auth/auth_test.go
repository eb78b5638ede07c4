package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// --- mock lookup ---

type mockUserLookup struct {
	users map[string]*User
}

func (m *mockUserLookup) Lookup(ctx context.Context, userID string) (*User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

// --- Tokens tests ---

func TestTokens_RoundTrip(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)

	signed, expiresAt, err := tk.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiry %v should be in the future", expiresAt)
	}

	subject, err := tk.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if subject != "user-1" {
		t.Errorf("expected subject %q, got %q", "user-1", subject)
	}
}

func TestTokens_Expired(t *testing.T) {
	tk := NewTokens("test-secret", -time.Minute)

	signed, _, err := tk.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := tk.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestTokens_WrongSecret(t *testing.T) {
	tk := NewTokens("secret-a", time.Hour)
	other := NewTokens("secret-b", time.Hour)

	signed, _, err := tk.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := other.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}
}

func TestTokens_Garbage(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)

	for _, s := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := tk.Verify(s); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q): expected ErrTokenInvalid, got %v", s, err)
		}
	}
}

// --- Context helpers tests ---

func TestUserContext_RoundTrip(t *testing.T) {
	u := &User{ID: "u1", Email: "maya@example.com", Username: "maya"}
	ctx := ContextWithUser(context.Background(), u)
	got := UserFromContext(ctx)
	if got == nil {
		t.Fatal("expected user from context, got nil")
	}
	if got.ID != u.ID {
		t.Errorf("expected ID %q, got %q", u.ID, got.ID)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	got := UserFromContext(context.Background())
	if got != nil {
		t.Errorf("expected nil from empty context, got %+v", got)
	}
}

// --- Middleware tests ---

func TestMiddleware(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)
	valid, _, err := tk.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	unknown, _, err := tk.Issue("user-unknown")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	lookup := &mockUserLookup{
		users: map[string]*User{
			"user-1": {ID: "user-1", Email: "maya@example.com", Username: "maya"},
		},
	}

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			t.Error("expected user in context inside handler")
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantError  bool
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + valid,
			wantStatus: http.StatusOK,
			wantError:  false,
		},
		{
			name:       "token for unknown user",
			authHeader: "Bearer " + unknown,
			wantStatus: http.StatusUnauthorized,
			wantError:  true,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not-a-token",
			wantStatus: http.StatusUnauthorized,
			wantError:  true,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
			wantError:  true,
		},
		{
			name:       "malformed header no bearer",
			authHeader: "Token " + valid,
			wantStatus: http.StatusUnauthorized,
			wantError:  true,
		},
		{
			name:       "bearer only no token",
			authHeader: "Bearer",
			wantStatus: http.StatusUnauthorized,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler := Middleware(tk, lookup)(okHandler)
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}

			if tt.wantError {
				assertJSONError(t, rr)
			}
		})
	}
}

func TestMiddleware_OnFailHook(t *testing.T) {
	tk := NewTokens("test-secret", time.Hour)
	lookup := &mockUserLookup{users: map[string]*User{}}

	failures := 0
	handler := Middleware(tk, lookup, func() { failures++ })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if failures != 1 {
		t.Fatalf("expected onFail to run once, ran %d times", failures)
	}
}

// assertJSONError checks that the response body contains the expected error JSON structure.
func assertJSONError(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()

	ct := rr.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error.Code != "unauthorized" {
		t.Errorf("expected error code 'unauthorized', got %q", resp.Error.Code)
	}
	if resp.Error.Message == "" {
		t.Error("expected non-empty error message")
	}
}
