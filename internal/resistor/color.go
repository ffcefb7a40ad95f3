// Package resistor turns color-band detections into a resistance value.
//
// Decoding runs four pure stages: Project collapses bounding boxes onto the
// dominant axis, Sequence orients the bands so the tolerance marker is last,
// Normalize pads or prunes to exactly four bands and DecodeValue reads the
// digits and multiplier.
package resistor

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned for detector category indices outside the color table.
var ErrUnknownCategory = errors.New("unknown color category")

// Color is a detectable band color.
type Color int

const (
	Black Color = iota
	Blue
	Brown
	Green
	Orange
	Red
	SideGold
	SideSilver
	Yellow
)

// NumColors is the number of categories the detector emits.
const NumColors = 9

var colorNames = [NumColors]string{
	Black:      "black",
	Blue:       "blue",
	Brown:      "brown",
	Green:      "green",
	Orange:     "orange",
	Red:        "red",
	SideGold:   "side_gold",
	SideSilver: "side_silver",
	Yellow:     "yellow",
}

// ColorFromCategory maps a detector category index to a Color.
func ColorFromCategory(category int) (Color, error) {
	if category < 0 || category >= NumColors {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	return Color(category), nil
}

// ParseColor parses the lower-case name produced by String.
func ParseColor(name string) (Color, error) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// IsSide reports whether c is a tolerance marker (gold or silver).
func (c Color) IsSide() bool {
	return c == SideGold || c == SideSilver
}

// Valid reports whether c is one of the known categories.
func (c Color) Valid() bool {
	return c >= 0 && c < NumColors
}

func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(colorNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
