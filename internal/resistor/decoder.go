package resistor

import "strconv"

// DecodeResult is the value read from a resolved sequence.
type DecodeResult struct {
	Digits     [2]int
	Multiplier float64
	Resistance float64 // ohms
	Colors     [BandCount]Color
}

var digitTable = [NumColors]struct {
	digit      int
	multiplier float64
	ok         bool
}{
	Black:  {0, 1, true},
	Brown:  {1, 10, true},
	Red:    {2, 100, true},
	Orange: {3, 1e3, true},
	Yellow: {4, 1e4, true},
	Green:  {5, 1e5, true},
	Blue:   {6, 1e6, true},
}

// Digit returns the digit value of c, or 0 for colors without one.
func Digit(c Color) int {
	if !c.Valid() || !digitTable[c].ok {
		return 0
	}
	return digitTable[c].digit
}

// Multiplier returns the multiplier of c, or 1 for colors without one.
func Multiplier(c Color) float64 {
	if !c.Valid() || !digitTable[c].ok {
		return 1
	}
	return digitTable[c].multiplier
}

// DecodeValue reads the first two colors as digits and the third as the
// multiplier. The fourth (tolerance) color carries no value.
func DecodeValue(colors [BandCount]Color) DecodeResult {
	d0, d1 := Digit(colors[0]), Digit(colors[1])
	m := Multiplier(colors[2])
	return DecodeResult{
		Digits:     [2]int{d0, d1},
		Multiplier: m,
		Resistance: float64(d0*10+d1) * m,
		Colors:     colors,
	}
}

// FormatOhms renders a resistance with an SI prefix, e.g. 4700 as "4.7k".
func FormatOhms(ohms float64) string {
	prefixes := []struct {
		scale  float64
		suffix string
	}{{1e9, "G"}, {1e6, "M"}, {1e3, "k"}}
	for _, p := range prefixes {
		if ohms >= p.scale {
			return strconv.FormatFloat(ohms/p.scale, 'g', 4, 64) + p.suffix
		}
	}
	return strconv.FormatFloat(ohms, 'g', 4, 64)
}
