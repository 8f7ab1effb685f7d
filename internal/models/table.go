// Package models defines the core domain entities: tables, spins, and alerts.
package models

import (
	"errors"
	"time"
)

// Table is one roulette table whose spins are tracked independently.
type Table struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks table field constraints.
func (t *Table) Validate() error {
	if t.ID == "" {
		return errors.New("table ID must not be empty")
	}
	if t.Name == "" {
		return errors.New("table name must not be empty")
	}
	if t.CreatedAt.After(time.Now()) {
		return errors.New("created at must not be in the future")
	}
	return nil
}

// Spin is a single observed outcome on a table.
type Spin struct {
	ID         string    `json:"id"`
	TableID    string    `json:"table_id"`
	Outcome    int       `json:"n"`
	RecordedAt time.Time `json:"ts"`
}

// Validate checks spin field constraints.
func (s *Spin) Validate() error {
	if s.ID == "" {
		return errors.New("spin ID must not be empty")
	}
	if s.TableID == "" {
		return errors.New("table ID must not be empty")
	}
	if s.Outcome < 0 || s.Outcome > 36 {
		return errors.New("outcome must be between 0 and 36")
	}
	if s.RecordedAt.IsZero() {
		return errors.New("recorded at must be set")
	}
	if s.RecordedAt.After(time.Now().Add(time.Minute)) {
		return errors.New("recorded at must not be in the future")
	}
	return nil
}
