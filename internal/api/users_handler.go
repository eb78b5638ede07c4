package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alecgard/wayfare/internal/auth"
	"github.com/alecgard/wayfare/internal/user"
)

// usersHandler groups user and profile HTTP handlers.
type usersHandler struct {
	store *user.Store
}

func newUsersHandler(store *user.Store) *usersHandler {
	return &usersHandler{store: store}
}

// GetUser handles GET /api/v1/users/{id}, returning public info for any user.
func (h *usersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be a valid UUID")
		return
	}

	info, err := h.store.GetPublicInfo(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// GetOwnProfile handles GET /api/v1/users/me/profile.
func (h *usersHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	profile, err := h.store.GetProfile(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateOwnProfile handles PUT /api/v1/users/me/profile.
func (h *usersHandler) UpdateOwnProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var input user.UpdateProfileInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if input.DisplayName != nil && len(*input.DisplayName) > 100 {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "display_name must be at most 100 characters")
		return
	}
	if input.Bio != nil && len(*input.Bio) > 500 {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "bio must be at most 500 characters")
		return
	}

	profile, err := h.store.UpdateProfile(r.Context(), caller.ID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	auditLog(r, "profile.update", "user", caller.ID)
	writeJSON(w, http.StatusOK, profile)
}
