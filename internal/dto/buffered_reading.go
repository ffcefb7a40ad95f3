package dto

import (
	"time"

	"resistorserver/internal/resistor"
)

// BufferedReading holds a measured photo and its reading before flushing to disk.
type BufferedReading struct {
	CreatedAt  time.Time
	Source     string
	Component  string // optional circuit component the reading is assigned to
	Detections []resistor.RawDetection
	Result     resistor.DecodeResult
	Fallback   bool
	Data       []byte
}
