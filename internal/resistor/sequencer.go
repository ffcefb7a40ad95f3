package resistor

import "sort"

// Sequence orders bands along the axis and orients them so the tolerance
// marker is the last element. Anything past the marker is dropped.
//
// Without a marker a synthetic SideGold band is appended at an unbounded
// position. With several markers only the most confident one is kept, the
// first one winning ties. The input slice is not modified.
func Sequence(bands []ProjectedBand) []ProjectedBand {
	out := withSingleSide(bands)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position.Less(out[j].Position)
	})

	side := sideIndex(out)
	if 2*side < len(out) {
		reverse(out)
		side = len(out) - 1 - side
	}

	return out[:side+1]
}

// withSingleSide copies bands, leaving exactly one side marker in the copy.
// A lone marker keeps its place; a marker chosen among several goes after the
// digit bands, which decides ties with digit bands at the same position.
func withSingleSide(bands []ProjectedBand) []ProjectedBand {
	best, count := -1, 0
	for i, b := range bands {
		if !b.Color.IsSide() {
			continue
		}
		count++
		if best < 0 || b.Confidence > bands[best].Confidence {
			best = i
		}
	}

	out := make([]ProjectedBand, 0, len(bands)+1)
	switch count {
	case 0:
		out = append(out, bands...)
		out = append(out, ProjectedBand{Color: SideGold, Position: Last()})
	case 1:
		out = append(out, bands...)
	default:
		for _, b := range bands {
			if !b.Color.IsSide() {
				out = append(out, b)
			}
		}
		out = append(out, bands[best])
	}
	return out
}

func sideIndex(bands []ProjectedBand) int {
	for i, b := range bands {
		if b.Color.IsSide() {
			return i
		}
	}
	panic("resistor: sequence has no side marker")
}

func reverse(bands []ProjectedBand) {
	for i, j := 0, len(bands)-1; i < j; i, j = i+1, j-1 {
		bands[i], bands[j] = bands[j], bands[i]
	}
}
