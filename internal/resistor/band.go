package resistor

import "math"

// BBox is a detection rectangle in image pixel coordinates.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// RawDetection is a single band reported by the detector.
type RawDetection struct {
	Color      Color   `json:"color"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Position is a band coordinate along the projection axis. The zero value is
// the finite coordinate 0; Last() builds the position that sorts after every
// finite one.
type Position struct {
	value     float64
	unbounded bool
}

// At returns a finite position.
func At(v float64) Position {
	return Position{value: v}
}

// Last returns the unbounded position used for synthetic tolerance markers.
func Last() Position {
	return Position{unbounded: true}
}

// Unbounded reports whether p sorts after every finite position.
func (p Position) Unbounded() bool {
	return p.unbounded
}

// Value returns the finite coordinate; ok is false for an unbounded position.
func (p Position) Value() (v float64, ok bool) {
	return p.value, !p.unbounded
}

// Less orders finite positions numerically, unbounded ones last.
func (p Position) Less(q Position) bool {
	switch {
	case p.unbounded:
		return false
	case q.unbounded:
		return true
	default:
		return p.value < q.value
	}
}

// gap returns the distance between p and q; finite is false when either side
// is unbounded, which makes the gap larger than any finite one.
func (p Position) gap(q Position) (d float64, finite bool) {
	if p.unbounded || q.unbounded {
		return 0, false
	}
	return math.Abs(q.value - p.value), true
}

// ProjectedBand is a detection collapsed onto one axis.
type ProjectedBand struct {
	Color      Color
	Position   Position
	Confidence float64
}

// Axis names the image axis bands were projected onto.
type Axis int

const (
	AxisY Axis = iota
	AxisX
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}
