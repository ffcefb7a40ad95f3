package dto

import (
	"errors"
	"fmt"

	"resistorserver/internal/resistor"
)

// DetectionPayload is one band detection as sent by clients. The color is
// given either as the detector category index or as a color name.
type DetectionPayload struct {
	Category   *int       `json:"category,omitempty"`
	Color      string     `json:"color,omitempty"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
}

// DecodeRequest is the body of POST /api/decode.
type DecodeRequest struct {
	Source     string             `json:"source,omitempty"`
	Detections []DetectionPayload `json:"detections"`
}

// ToDetection validates the payload and converts it to a core detection.
func (p DetectionPayload) ToDetection() (resistor.RawDetection, error) {
	var (
		c   resistor.Color
		err error
	)
	switch {
	case p.Category != nil:
		c, err = resistor.ColorFromCategory(*p.Category)
	case p.Color != "":
		c, err = resistor.ParseColor(p.Color)
	default:
		err = errors.New("detection needs a category or a color")
	}
	if err != nil {
		return resistor.RawDetection{}, err
	}

	if p.Confidence < 0 || p.Confidence > 1 {
		return resistor.RawDetection{}, fmt.Errorf("confidence %v out of [0,1]", p.Confidence)
	}

	return resistor.RawDetection{
		Color:      c,
		BBox:       resistor.BBox{X1: p.BBox[0], Y1: p.BBox[1], X2: p.BBox[2], Y2: p.BBox[3]},
		Confidence: p.Confidence,
	}, nil
}

// ToDetections converts every payload, failing on the first invalid one.
func (r DecodeRequest) ToDetections() ([]resistor.RawDetection, error) {
	out := make([]resistor.RawDetection, 0, len(r.Detections))
	for i, p := range r.Detections {
		d, err := p.ToDetection()
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
