package api

import (
	"net/http"
	"strings"

	"github.com/alecgard/wayfare/internal/auth"
	"github.com/alecgard/wayfare/internal/metrics"
	"github.com/alecgard/wayfare/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	store   *user.Store
	tokens  *auth.Tokens
	metrics *metrics.Metrics
}

func newAuthHandler(store *user.Store, tokens *auth.Tokens, m *metrics.Metrics) *authHandler {
	return &authHandler{store: store, tokens: tokens, metrics: m}
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "a valid email is required")
		return
	}
	if req.Username == "" || len(req.Username) > 50 {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "username must be between 1 and 50 characters")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "password must be at least 8 characters")
		return
	}

	u, err := h.store.Create(r.Context(), user.CreateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auditLog(r, "user.register", "user", u.ID, "email", u.Email)
	writeJSON(w, http.StatusCreated, userPayload(u))
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "email and password are required")
		return
	}

	u, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil || !u.IsActive || !user.CheckPassword(u, req.Password) {
		h.metrics.IncAuthFailure()
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	h.metrics.IncAuthSuccess()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt,
		"user":         userPayload(u),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       u.ID,
		"email":    u.Email,
		"username": u.Username,
	})
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so this
// only exists to give clients a uniform endpoint to call.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func userPayload(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"email":       u.Email,
		"username":    u.Username,
		"is_active":   u.IsActive,
		"is_verified": u.IsVerified,
		"created_at":  u.CreatedAt,
	}
}
