package handlers

import (
	"encoding/json"
	"net/http"

	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/services"
)

// maxDecodeBody limits the JSON body of /api/decode.
const maxDecodeBody = 1 << 20

// DecodeHandler decodes band detections sent as JSON into a resistance.
// An empty detection list yields the fallback value.
func DecodeHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		var req dto.DecodeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDecodeBody)).Decode(&req); err != nil {
			respondError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		detections, err := req.ToDetections()
		if err != nil {
			logger.Warning("Rejected decode request: %v", err)
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, fallback := manager.DecodeDetections(detections)
		resp := dto.NewDecodeResponse(result, fallback, len(detections))
		resp.Source = req.Source
		respondJSON(w, resp, http.StatusOK)
	}
}
