package resistor

// FallbackResistance is reported when the detector found no bands at all.
const FallbackResistance = 100.0

// Resolve runs projection, sequencing and normalization, returning the four
// oriented bands.
func Resolve(detections []RawDetection) ([]ProjectedBand, error) {
	bands, _, err := Project(detections)
	if err != nil {
		return nil, err
	}
	return Normalize(Sequence(bands)), nil
}

// Decode reads the resistance encoded by detections. It returns ErrEmptyInput
// when detections is empty.
func Decode(detections []RawDetection) (DecodeResult, error) {
	resolved, err := Resolve(detections)
	if err != nil {
		return DecodeResult{}, err
	}

	var colors [BandCount]Color
	for i, b := range resolved {
		colors[i] = b.Color
	}
	return DecodeValue(colors), nil
}

// DecodeOrFallback is Decode for callers that must always produce a value:
// empty input yields FallbackResistance and fallback is true.
func DecodeOrFallback(detections []RawDetection) (result DecodeResult, fallback bool) {
	result, err := Decode(detections)
	if err != nil {
		return DecodeResult{Resistance: FallbackResistance, Multiplier: 1}, true
	}
	return result, false
}
