package resistor

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyInput is returned when there are no detections to decode.
var ErrEmptyInput = errors.New("no band detections")

// Project collapses every detection onto the axis with the larger spread of
// bounding-box centers. Equal spreads select the y axis.
func Project(detections []RawDetection) ([]ProjectedBand, Axis, error) {
	if len(detections) == 0 {
		return nil, AxisY, ErrEmptyInput
	}

	xs := make([]float64, len(detections))
	ys := make([]float64, len(detections))
	for i, d := range detections {
		xs[i], ys[i] = d.BBox.Center()
	}

	spreadX := floats.Max(xs) - floats.Min(xs)
	spreadY := floats.Max(ys) - floats.Min(ys)

	axis, coords := AxisY, ys
	if spreadX > spreadY {
		axis, coords = AxisX, xs
	}

	bands := make([]ProjectedBand, len(detections))
	for i, d := range detections {
		bands[i] = ProjectedBand{
			Color:      d.Color,
			Position:   At(coords[i]),
			Confidence: d.Confidence,
		}
	}
	return bands, axis, nil
}
