package sqlite

import (
	"fmt"

	"resistorserver/internal/model"
	"resistorserver/internal/resistor"
)

// BandRepository implements repository.BandRepository for SQLite.
type BandRepository struct {
	db *DB
}

// NewBandRepository creates a new SQLite band repository.
func NewBandRepository(db *DB) *BandRepository {
	return &BandRepository{db: db}
}

// InsertBatch adds multiple bands in a single transaction.
func (r *BandRepository) InsertBatch(bands []model.Band) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bands (reading_id, color, x1, y1, x2, y2, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bands {
		if _, err := stmt.Exec(b.ReadingID, b.Color.String(), b.X1, b.Y1, b.X2, b.Y2, b.Confidence); err != nil {
			return fmt.Errorf("failed to insert band: %w", err)
		}
	}

	return tx.Commit()
}

// GetByReadingID retrieves the bands of a reading in insertion order, which
// is the order the detector reported them in.
func (r *BandRepository) GetByReadingID(readingID int64) ([]model.Band, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, reading_id, color, x1, y1, x2, y2, confidence
		FROM bands WHERE reading_id = ? ORDER BY id
	`, readingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []model.Band
	for rows.Next() {
		var (
			b     model.Band
			color string
		)
		if err := rows.Scan(&b.ID, &b.ReadingID, &color, &b.X1, &b.Y1, &b.X2, &b.Y2, &b.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan band: %w", err)
		}
		if b.Color, err = resistor.ParseColor(color); err != nil {
			return nil, fmt.Errorf("band %d: %w", b.ID, err)
		}
		bands = append(bands, b)
	}

	return bands, rows.Err()
}

// DeleteByReadingID removes all bands of a reading.
func (r *BandRepository) DeleteByReadingID(readingID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM bands WHERE reading_id = ?`, readingID); err != nil {
		return fmt.Errorf("failed to delete bands: %w", err)
	}
	return nil
}
