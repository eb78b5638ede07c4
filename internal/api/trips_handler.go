package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alecgard/wayfare/internal/auth"
	"github.com/alecgard/wayfare/internal/metrics"
	"github.com/alecgard/wayfare/internal/trip"
)

// tripsHandler groups trip, membership, and activity HTTP handlers.
type tripsHandler struct {
	service *trip.Service
	metrics *metrics.Metrics
}

func newTripsHandler(service *trip.Service, m *metrics.Metrics) *tripsHandler {
	return &tripsHandler{service: service, metrics: m}
}

// tripResponse decorates a trip with caller-specific annotations.
type tripResponse struct {
	*trip.Trip
	MemberCount int       `json:"member_count"`
	UserRole    trip.Role `json:"user_role,omitempty"`
}

func (h *tripsHandler) annotate(r *http.Request, t *trip.Trip, userID string) tripResponse {
	resp := tripResponse{Trip: t}
	if count, err := h.service.MemberCount(r.Context(), t.ID); err == nil {
		resp.MemberCount = count
	}
	if role, err := h.service.RoleInTrip(r.Context(), t.ID, userID); err == nil {
		resp.UserRole = role
	}
	return resp
}

// CreateTrip handles POST /api/v1/trips.
func (h *tripsHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())

	var input trip.CreateTripInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.service.CreateTrip(r.Context(), input, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.TripsCreatedTotal.Inc()
	h.metrics.IncActivity(string(trip.ActivityCreated))
	auditLog(r, "trip.create", "trip", t.ID, "title", t.Title)
	writeJSON(w, http.StatusCreated, h.annotate(r, t, caller.ID))
}

// ListTrips handles GET /api/v1/trips, listing trips the caller belongs to.
func (h *tripsHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	skip, limit := paginationParams(r)

	trips, err := h.service.UserTrips(r.Context(), caller.ID, skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, h.annotate(r, t, caller.ID))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trips": out,
		"skip":  skip,
		"limit": limit,
	})
}

// GetTrip handles GET /api/v1/trips/{id}.
func (h *tripsHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	t, err := h.service.TripByID(r.Context(), tripID, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.annotate(r, t, caller.ID))
}

// UpdateTrip handles PUT /api/v1/trips/{id}.
func (h *tripsHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	var patch trip.UpdateTripInput
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.service.UpdateTrip(r.Context(), tripID, patch, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.IncActivity(string(trip.ActivityUpdated))
	auditLog(r, "trip.update", "trip", t.ID)
	writeJSON(w, http.StatusOK, h.annotate(r, t, caller.ID))
}

// DeleteTrip handles DELETE /api/v1/trips/{id}.
func (h *tripsHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteTrip(r.Context(), tripID, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "trip_not_found", "trip not found")
		return
	}

	h.metrics.TripsDeletedTotal.Inc()
	auditLog(r, "trip.delete", "trip", tripID)
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/trips/{id}/members.
func (h *tripsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	members, err := h.service.TripMembers(r.Context(), tripID, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if members == nil {
		members = []*trip.MemberDetail{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
	})
}

// AddMember handles POST /api/v1/trips/{id}/members.
func (h *tripsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}

	var input trip.AddMemberInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if _, err := uuid.Parse(input.UserID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "user_id must be a valid UUID")
		return
	}

	member, err := h.service.AddMember(r.Context(), tripID, input, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.MembersAddedTotal.Inc()
	h.metrics.IncActivity(string(trip.ActivityMemberAdded))
	auditLog(r, "trip.member_add", "trip", tripID, "added_user_id", input.UserID, "role", member.Role)
	writeJSON(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/v1/trips/{id}/members/{userID}.
func (h *tripsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(targetID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be a valid UUID")
		return
	}

	removed, err := h.service.RemoveMember(r.Context(), tripID, targetID, caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "member_not_found", "member not found")
		return
	}

	h.metrics.MembersRemovedTotal.Inc()
	h.metrics.IncActivity(string(trip.ActivityMemberRemoved))
	auditLog(r, "trip.member_remove", "trip", tripID, "removed_user_id", targetID)
	w.WriteHeader(http.StatusNoContent)
}

// ListActivities handles GET /api/v1/trips/{id}/activities.
func (h *tripsHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	tripID, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	skip, limit := paginationParams(r)

	activities, err := h.service.TripActivities(r.Context(), tripID, caller.ID, skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if activities == nil {
		activities = []*trip.Activity{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": activities,
		"skip":       skip,
		"limit":      limit,
	})
}

// tripIDParam extracts and validates the {id} path parameter. It writes a
// 400 response and returns false when the value is not a UUID.
func tripIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "trip id must be a valid UUID")
		return "", false
	}
	return id, true
}

// paginationParams parses skip and limit query parameters with defaults.
func paginationParams(r *http.Request) (skip, limit int) {
	limit = 100
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return skip, limit
}
