package handlers

import (
	"errors"
	"io"
	"net/http"

	"resistorserver/internal/logger"
	"resistorserver/internal/services"
	"resistorserver/internal/services/ai"
)

// maxUploadSize limits multipart photo uploads.
const maxUploadSize = 32 << 20

// MeasureHandler reads the resistance from an uploaded photo. With ?async=1
// the photo is queued and the handler answers 202 Accepted.
func MeasureHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondError(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			respondError(w, "No image uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			respondError(w, "Failed to read image", http.StatusInternalServerError)
			return
		}
		if len(image) == 0 {
			respondError(w, "Empty image", http.StatusBadRequest)
			return
		}

		source := r.FormValue("source")
		if source == "" {
			source = "upload"
		}
		component := r.FormValue("component")

		if r.URL.Query().Get("async") == "1" {
			switch err := manager.Submit(image, source, component); {
			case errors.Is(err, services.ErrQueueFull):
				respondError(w, err.Error(), http.StatusTooManyRequests)
			case err != nil:
				respondError(w, err.Error(), http.StatusServiceUnavailable)
			default:
				respondJSON(w, map[string]string{"status": "queued", "source": source}, http.StatusAccepted)
			}
			return
		}

		measurement, err := manager.Measure(image, source, component)
		switch {
		case errors.Is(err, ai.ErrInvalidImage):
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ai.ErrModelNotReady), errors.Is(err, services.ErrStopped):
			logger.Warning("Measurement unavailable: %v", err)
			respondError(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			logger.Error("Measurement failed: %v", err)
			respondError(w, "Measurement failed", http.StatusInternalServerError)
			return
		}

		respondJSON(w, measurement.Response(), http.StatusOK)
	}
}
