package model

import (
	"time"

	"resistorserver/internal/resistor"
)

// Reading is a stored resistance measurement.
type Reading struct {
	ID         int64            `json:"id"`
	Source     string           `json:"source"`
	Filename   string           `json:"filename,omitempty"`
	Thumbnail  string           `json:"thumbnail,omitempty"`
	FileSize   int64            `json:"filesize"`
	Resistance float64          `json:"resistance"`
	Digits     [2]int           `json:"digits"`
	Multiplier float64          `json:"multiplier"`
	Colors     []resistor.Color `json:"colors,omitempty"`
	Fallback   bool             `json:"fallback"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Band is a raw band detection kept alongside its reading so the reading can
// be decoded again later.
type Band struct {
	ID         int64          `json:"id"`
	ReadingID  int64          `json:"reading_id"`
	Color      resistor.Color `json:"color"`
	X1         float64        `json:"x1"`
	Y1         float64        `json:"y1"`
	X2         float64        `json:"x2"`
	Y2         float64        `json:"y2"`
	Confidence float64        `json:"confidence"`
}

// Detection converts the stored band back into a core detection.
func (b Band) Detection() resistor.RawDetection {
	return resistor.RawDetection{
		Color:      b.Color,
		BBox:       resistor.BBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2},
		Confidence: b.Confidence,
	}
}

// BandFromDetection builds a storable band for the given reading.
func BandFromDetection(readingID int64, d resistor.RawDetection) Band {
	return Band{
		ReadingID:  readingID,
		Color:      d.Color,
		X1:         d.BBox.X1,
		Y1:         d.BBox.Y1,
		X2:         d.BBox.X2,
		Y2:         d.BBox.Y2,
		Confidence: d.Confidence,
	}
}

// Component is a named resistor of the user's circuit whose value may come
// from a reading or be set by hand.
type Component struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	ReadingID *int64  `json:"reading_id,omitempty"`
}

// ReadingStats contains statistics about stored readings.
type ReadingStats struct {
	TotalReadings  int            `json:"total_readings"`
	FallbackCount  int            `json:"fallback_count"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerSource      map[string]int `json:"per_source"`
	ValueCounts    map[string]int `json:"value_counts"`
}
