package repository

import (
	"errors"

	"resistorserver/internal/dto"
	"resistorserver/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ReadingRepository defines the interface for reading data operations.
type ReadingRepository interface {
	// Create operations
	Insert(reading *model.Reading) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Reading, error)
	GetAll(filter *dto.ReadingFilters) ([]model.Reading, error)
	GetTotalCount(filter *dto.ReadingFilters) (int, error)
	GetSources() ([]string, error)
	GetStats() (*model.ReadingStats, error)

	// Update operations
	UpdateResult(reading *model.Reading) error

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// BandRepository defines the interface for raw band detections of a reading.
type BandRepository interface {
	InsertBatch(bands []model.Band) error
	GetByReadingID(readingID int64) ([]model.Band, error)
	DeleteByReadingID(readingID int64) error
}

// ComponentRepository defines the interface for named circuit resistors.
type ComponentRepository interface {
	List() ([]model.Component, error)
	Upsert(c *model.Component) (int64, error)
	SetValues(values []dto.ComponentValue) error
}
