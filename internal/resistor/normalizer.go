package resistor

import "fmt"

// BandCount is the number of bands a resolved sequence holds.
const BandCount = 4

// Normalize pads or prunes an oriented sequence to exactly BandCount bands.
//
// Short sequences get synthetic Brown bands at the front. Long ones lose one
// band per round from the closest adjacent pair: the non-marker member if the
// pair holds the side marker, otherwise the less confident member (the later
// one on ties).
func Normalize(bands []ProjectedBand) []ProjectedBand {
	var out []ProjectedBand
	switch {
	case len(bands) < BandCount:
		out = make([]ProjectedBand, 0, BandCount)
		for i := len(bands); i < BandCount; i++ {
			out = append(out, ProjectedBand{Color: Brown, Position: At(-1)})
		}
		out = append(out, bands...)
	case len(bands) > BandCount:
		out = prune(bands)
	default:
		out = append([]ProjectedBand(nil), bands...)
	}

	if len(out) != BandCount || !out[BandCount-1].Color.IsSide() {
		panic(fmt.Sprintf("resistor: normalized sequence broken: %d bands, last side=%t",
			len(out), len(out) > 0 && out[len(out)-1].Color.IsSide()))
	}
	return out
}

// prune removes bands from the arena until BandCount remain. live holds the
// arena indices still in play, in sequence order, and is rebuilt every round.
func prune(arena []ProjectedBand) []ProjectedBand {
	live := make([]int, len(arena))
	for i := range live {
		live[i] = i
	}

	for len(live) > BandCount {
		pair := closestPair(arena, live)
		a, b := arena[live[pair]], arena[live[pair+1]]

		drop := pair + 1
		switch {
		case a.Color.IsSide():
			drop = pair + 1
		case b.Color.IsSide():
			drop = pair
		case a.Confidence < b.Confidence:
			drop = pair
		}

		next := make([]int, 0, len(live)-1)
		next = append(next, live[:drop]...)
		next = append(next, live[drop+1:]...)
		live = next
	}

	out := make([]ProjectedBand, len(live))
	for i, idx := range live {
		out[i] = arena[idx]
	}
	return out
}

// closestPair returns k such that live[k], live[k+1] have the smallest gap.
// Earlier pairs win ties; unbounded gaps lose to any finite gap.
func closestPair(arena []ProjectedBand, live []int) int {
	best := 0
	bestGap, bestFinite := arena[live[0]].Position.gap(arena[live[1]].Position)
	for k := 1; k < len(live)-1; k++ {
		gap, finite := arena[live[k]].Position.gap(arena[live[k+1]].Position)
		if !finite {
			continue
		}
		if !bestFinite || gap < bestGap {
			best, bestGap, bestFinite = k, gap, true
		}
	}
	return best
}
