package handlers

import (
	"net/http"

	"resistorserver/internal/services"
)

// HealthHandler reports liveness and the state of the band model.
func HealthHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{
			"status": "ok",
			"model":  manager.ModelState().String(),
		}, http.StatusOK)
	}
}
