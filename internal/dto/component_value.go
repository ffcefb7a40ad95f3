package dto

// ComponentValue is one entry of POST /api/resistors.
type ComponentValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
