package dto

import "resistorserver/internal/resistor"

// DecodeResponse is the reading returned to clients.
type DecodeResponse struct {
	ReadingID  int64            `json:"reading_id,omitempty"`
	Source     string           `json:"source,omitempty"`
	Resistance float64          `json:"resistance"`
	Digits     [2]int           `json:"digits"`
	Multiplier float64          `json:"multiplier"`
	Colors     []resistor.Color `json:"colors,omitempty"`
	Bands      int              `json:"bands"`
	Fallback   bool             `json:"fallback"`
}

// NewDecodeResponse builds the response for a decoded (or fallback) reading.
// Colors are omitted for fallback readings since nothing was resolved.
func NewDecodeResponse(result resistor.DecodeResult, fallback bool, bands int) DecodeResponse {
	resp := DecodeResponse{
		Resistance: result.Resistance,
		Digits:     result.Digits,
		Multiplier: result.Multiplier,
		Bands:      bands,
		Fallback:   fallback,
	}
	if !fallback {
		resp.Colors = result.Colors[:]
	}
	return resp
}
