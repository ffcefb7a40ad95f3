package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"resistorserver/internal/dto"
	"resistorserver/internal/model"
	"resistorserver/internal/repository"
	"resistorserver/internal/resistor"
)

const readingColumns = `id, source, filename, thumbnail, filesize, resistance, digit0, digit1, multiplier, colors, fallback, created_at`

// ReadingRepository implements repository.ReadingRepository for SQLite.
type ReadingRepository struct {
	db *DB
}

// NewReadingRepository creates a new SQLite reading repository.
func NewReadingRepository(db *DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert adds a new reading record to the database.
func (r *ReadingRepository) Insert(reading *model.Reading) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO readings (source, filename, thumbnail, filesize, resistance, digit0, digit1, multiplier, colors, fallback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reading.Source, reading.Filename, reading.Thumbnail, reading.FileSize, reading.Resistance,
		reading.Digits[0], reading.Digits[1], reading.Multiplier, encodeColors(reading.Colors),
		reading.Fallback, reading.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	reading.ID = id
	return id, nil
}

// GetByID retrieves a reading by its ID.
func (r *ReadingRepository) GetByID(id int64) (*model.Reading, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+readingColumns+` FROM readings WHERE id = ?`, id)
	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	return reading, nil
}

// GetAll retrieves readings based on filter criteria, newest first.
func (r *ReadingRepository) GetAll(filter *dto.ReadingFilters) ([]model.Reading, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `SELECT ` + readingColumns + ` FROM readings` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}

	return readings, rows.Err()
}

// GetTotalCount returns the number of readings matching the filter, ignoring pagination.
func (r *ReadingRepository) GetTotalCount(filter *dto.ReadingFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM readings`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

// GetSources returns a list of all distinct reading sources.
func (r *ReadingRepository) GetSources() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT source FROM readings ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// GetStats returns totals, per-source counts and counts per decoded value.
func (r *ReadingRepository) GetStats() (*model.ReadingStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.ReadingStats{
		PerSource:   make(map[string]int),
		ValueCounts: make(map[string]int),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(fallback), 0), COALESCE(SUM(filesize), 0) FROM readings
	`).Scan(&stats.TotalReadings, &stats.FallbackCount, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT source, COUNT(*) FROM readings GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-source stats: %w", err)
	}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan per-source stats: %w", err)
		}
		stats.PerSource[source] = count
	}
	rows.Close()

	rows, err = r.db.Conn().Query(`SELECT resistance, COUNT(*) FROM readings WHERE fallback = 0 GROUP BY resistance`)
	if err != nil {
		return nil, fmt.Errorf("failed to get value stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var value float64
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, fmt.Errorf("failed to scan value stats: %w", err)
		}
		stats.ValueCounts[strconv.FormatFloat(value, 'g', -1, 64)] = count
	}

	return stats, rows.Err()
}

// UpdateResult overwrites the decoded value of an existing reading and of the
// components measured from it.
func (r *ReadingRepository) UpdateResult(reading *model.Reading) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE readings SET resistance = ?, digit0 = ?, digit1 = ?, multiplier = ?, colors = ?, fallback = ?
		WHERE id = ?
	`, reading.Resistance, reading.Digits[0], reading.Digits[1], reading.Multiplier,
		encodeColors(reading.Colors), reading.Fallback, reading.ID)
	if err != nil {
		return fmt.Errorf("failed to update reading: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE components SET value = ? WHERE reading_id = ?`, reading.Resistance, reading.ID); err != nil {
		return fmt.Errorf("failed to update components of reading %d: %w", reading.ID, err)
	}

	return tx.Commit()
}

// Delete removes a reading and, through the foreign key, its bands.
func (r *ReadingRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	return expectAffected(result)
}

// DeleteAll removes all readings and bands.
func (r *ReadingRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bands`); err != nil {
		return fmt.Errorf("failed to delete bands: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM readings`); err != nil {
		return fmt.Errorf("failed to delete readings: %w", err)
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(s scanner) (*model.Reading, error) {
	var (
		reading model.Reading
		colors  string
	)
	err := s.Scan(&reading.ID, &reading.Source, &reading.Filename, &reading.Thumbnail, &reading.FileSize,
		&reading.Resistance, &reading.Digits[0], &reading.Digits[1], &reading.Multiplier,
		&colors, &reading.Fallback, &reading.CreatedAt)
	if err != nil {
		return nil, err
	}

	reading.Colors, err = decodeColors(colors)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func buildWhere(filter *dto.ReadingFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	if filter.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.MinResistance > 0 {
		clauses = append(clauses, "resistance >= ?")
		args = append(args, filter.MinResistance)
	}
	if filter.MaxResistance > 0 {
		clauses = append(clauses, "resistance <= ?")
		args = append(args, filter.MaxResistance)
	}
	if !filter.DateAfter.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.DateAfter.UTC())
	}
	if !filter.DateBefore.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.DateBefore.UTC())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func encodeColors(colors []resistor.Color) string {
	names := make([]string, len(colors))
	for i, c := range colors {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

func decodeColors(s string) ([]resistor.Color, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	colors := make([]resistor.Color, len(parts))
	for i, p := range parts {
		c, err := resistor.ParseColor(p)
		if err != nil {
			return nil, fmt.Errorf("stored colors %q: %w", s, err)
		}
		colors[i] = c
	}
	return colors, nil
}
