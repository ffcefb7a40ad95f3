package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/repository"
)

// ComponentsHandler lists the named resistors of the circuit (GET) or sets
// their values by hand (POST [{"name":"R0","value":220}]).
func ComponentsHandler(components repository.ComponentRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}

		if r.Method == http.MethodPost {
			var values []dto.ComponentValue
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDecodeBody)).Decode(&values); err != nil {
				respondError(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
			if err := validateComponents(values); err != nil {
				respondError(w, err.Error(), http.StatusBadRequest)
				return
			}

			if err := components.SetValues(values); err != nil {
				logger.Error("Failed to set components: %v", err)
				respondError(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			for _, v := range values {
				logger.Info("Component %s set to %v", v.Name, v.Value)
			}
		}

		list, err := components.List()
		if err != nil {
			logger.Error("Failed to list components: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, list, http.StatusOK)
	}
}

func validateComponents(values []dto.ComponentValue) error {
	for i, v := range values {
		if v.Name == "" {
			return fmt.Errorf("component %d: name is required", i)
		}
		if v.Value < 0 {
			return fmt.Errorf("component %s: value must not be negative", v.Name)
		}
	}
	return nil
}
