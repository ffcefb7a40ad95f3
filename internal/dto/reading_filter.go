// ReadingFilters describe user-provided filters to narrow the readings list.
package dto

import "time"

type ReadingFilters struct {
	Source        string
	MinResistance float64
	MaxResistance float64 // 0 means no upper bound
	DateAfter     time.Time
	DateBefore    time.Time
	Limit         int
	Offset        int
}
