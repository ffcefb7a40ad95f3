package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"resistorserver/internal/config"
	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/repository"
	"resistorserver/internal/services/storage"
)

// GetReadingsHandler returns a filtered, paginated list of stored readings.
// Response is JSON of type dto.ReadingsData.
func GetReadingsHandler(readings repository.ReadingRepository, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.ReadingFilters{
			Source:        q.Get("source"),
			MinResistance: parseFloatDefault(q.Get("minResistance"), 0),
			MaxResistance: parseFloatDefault(q.Get("maxResistance"), 0),
			DateAfter:     parseDate(q.Get("dateAfter")),
			DateBefore:    parseDate(q.Get("dateBefore")),
			Limit:         limit,
			Offset:        (page - 1) * limit,
		}
		if !filter.DateBefore.IsZero() {
			// include the whole day
			filter.DateBefore = filter.DateBefore.Add(24*time.Hour - time.Nanosecond)
		}

		list, err := readings.GetAll(filter)
		if err != nil {
			logger.Error("Error querying readings from database: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := readings.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting readings: %v", err)
			totalCount = len(list)
		}

		respondJSON(w, dto.ReadingsData{
			Readings:    list,
			ImagesDir:   cfg.ImageDirectory,
			MaxSize:     cfg.MaxImageDirectorySize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, http.StatusOK)
	}
}

// ViewReadingHandler serves the photo of a reading given by "id"; with
// thumb=1 the thumbnail is served instead.
func ViewReadingHandler(readings repository.ReadingRepository, buffer *storage.BufferService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			respondError(w, "Reading id is required", http.StatusBadRequest)
			return
		}

		reading, err := readings.GetByID(id)
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Reading not found", http.StatusNotFound)
			return
		} else if err != nil {
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		name := reading.Filename
		if r.URL.Query().Get("thumb") == "1" {
			name = reading.Thumbnail
		}
		if name == "" {
			respondError(w, "Reading has no photo", http.StatusNotFound)
			return
		}

		http.ServeFile(w, r, filepath.Join(buffer.ImagesDir(), filepath.Base(name)))
	}
}

// DeleteReadingHandler removes a reading, its bands and its photo.
func DeleteReadingHandler(readings repository.ReadingRepository, buffer *storage.BufferService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodDelete, http.MethodPost) {
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			respondError(w, "Reading id is required", http.StatusBadRequest)
			return
		}

		reading, err := readings.GetByID(id)
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Reading not found", http.StatusNotFound)
			return
		} else if err != nil {
			logger.Error("Failed to load reading %d: %v", id, err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := readings.Delete(id); err != nil {
			logger.Error("Failed to delete reading %d: %v", id, err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		buffer.RemovePhoto(reading)

		logger.Info("Deleted reading %d", id)
		respondJSON(w, map[string]interface{}{"status": "deleted", "id": id}, http.StatusOK)
	}
}

// ClearReadingsHandler deletes every reading and every stored photo.
func ClearReadingsHandler(readings repository.ReadingRepository, buffer *storage.BufferService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost, http.MethodDelete) {
			return
		}

		if err := buffer.RemoveAllPhotos(); err != nil {
			logger.Error("Error clearing photos: %v", err)
		}
		if err := readings.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("All readings cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetFiltersHandler returns the sources available for filtering.
func GetFiltersHandler(readings repository.ReadingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := readings.GetSources()
		if err != nil {
			logger.Error("Failed to get sources: %v", err)
			sources = []string{}
		}
		respondJSON(w, map[string]interface{}{"sources": sources}, http.StatusOK)
	}
}

// GetStatsHandler returns reading statistics.
func GetStatsHandler(readings repository.ReadingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := readings.GetStats()
		if err != nil {
			logger.Error("Failed to get stats: %v", err)
			respondError(w, "Failed to retrieve stats", http.StatusInternalServerError)
			return
		}
		respondJSON(w, stats, http.StatusOK)
	}
}
