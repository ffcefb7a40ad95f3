// ReadingsData is a paginated response payload for the readings list.
package dto

import "resistorserver/internal/model"

type ReadingsData struct {
	Readings    []model.Reading `json:"readings"`
	ImagesDir   string          `json:"imagesDir"`
	MaxSize     int64           `json:"maxSize"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}
