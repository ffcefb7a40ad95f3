package sqlite

import (
	"database/sql"
	"fmt"

	"resistorserver/internal/dto"
	"resistorserver/internal/model"
)

// ComponentRepository implements repository.ComponentRepository for SQLite.
type ComponentRepository struct {
	db *DB
}

// NewComponentRepository creates a new SQLite component repository.
func NewComponentRepository(db *DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// List returns all components ordered by name.
func (r *ComponentRepository) List() ([]model.Component, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT id, name, value, reading_id FROM components ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	components := []model.Component{}
	for rows.Next() {
		var (
			c         model.Component
			readingID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Value, &readingID); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		if readingID.Valid {
			id := readingID.Int64
			c.ReadingID = &id
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

// Upsert inserts the component or replaces the value and reading of the
// component with the same name.
func (r *ComponentRepository) Upsert(c *model.Component) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var readingID sql.NullInt64
	if c.ReadingID != nil {
		readingID = sql.NullInt64{Int64: *c.ReadingID, Valid: true}
	}

	var id int64
	err := r.db.Conn().QueryRow(`
		INSERT INTO components (name, value, reading_id) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, reading_id = excluded.reading_id
		RETURNING id
	`, c.Name, c.Value, readingID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert component %s: %w", c.Name, err)
	}
	c.ID = id
	return id, nil
}

// SetValues sets the values of the named components in one transaction,
// creating missing ones. Overridden components are detached from their
// readings. Either every value is applied or none is.
func (r *ComponentRepository) SetValues(values []dto.ComponentValue) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO components (name, value, reading_id) VALUES (?, ?, NULL)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, reading_id = NULL
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.Exec(v.Name, v.Value); err != nil {
			return fmt.Errorf("failed to set value of %s: %w", v.Name, err)
		}
	}

	return tx.Commit()
}
