package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/wayfare.json.
const wellKnownManifest = `{
  "name": "Wayfare",
  "description": "Collaborative trip planning API",
  "version": "0.1.0",
  "api_base": "/api/v1",
  "auth": {
    "type": "bearer",
    "header": "Authorization"
  },
  "endpoints": {
    "register": "/api/v1/auth/register",
    "login": "/api/v1/auth/login",
    "trips": "/api/v1/trips",
    "users": "/api/v1/users"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Wayfare well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
