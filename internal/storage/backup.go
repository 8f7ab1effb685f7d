package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/roulettemon/internal/models"
)

// Backup is the portable JSON document written by Export and read by Import.
type Backup struct {
	ActiveID string                 `json:"activeId"`
	Tables   map[string]BackupTable `json:"tables"`
}

type BackupTable struct {
	Name  string       `json:"name"`
	Spins []BackupSpin `json:"spins"`
}

// BackupSpin carries an outcome and its unix-millisecond timestamp.
type BackupSpin struct {
	N  int   `json:"n"`
	TS int64 `json:"ts"`
}

// Export writes every table and its full spin history as indented JSON.
func (s *Storage) Export(w io.Writer, activeID string) error {
	tables, err := s.ListTables()
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	b := Backup{ActiveID: activeID, Tables: make(map[string]BackupTable, len(tables))}
	for _, t := range tables {
		spins, err := s.RecentSpins(t.ID, 0)
		if err != nil {
			return fmt.Errorf("failed to export table %s: %w", t.ID, err)
		}
		bt := BackupTable{Name: t.Name, Spins: make([]BackupSpin, len(spins))}
		for i, sp := range spins {
			bt.Spins[i] = BackupSpin{N: sp.Outcome, TS: sp.RecordedAt.UnixMilli()}
		}
		b.Tables[t.ID] = bt
	}
	if b.ActiveID == "" && len(tables) > 0 {
		b.ActiveID = tables[0].ID
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import replaces all tables and spins with the contents of a backup.
// Score state and alerts of replaced tables are dropped with them.
func (s *Storage) Import(r io.Reader) (*Backup, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if b.Tables == nil || b.ActiveID == "" {
		return nil, fmt.Errorf("invalid backup: tables and activeId are required")
	}

	ids := make([]string, 0, len(b.Tables))
	for id := range b.Tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var spins []models.Spin
	now := time.Now()
	for _, id := range ids {
		bt := b.Tables[id]
		table := models.Table{ID: id, Name: bt.Name, CreatedAt: now}
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("invalid backup table %s: %w", id, err)
		}
		for _, bs := range bt.Spins {
			spin := models.Spin{ID: uuid.New().String(), TableID: id, Outcome: bs.N, RecordedAt: time.UnixMilli(bs.TS)}
			if err := spin.Validate(); err != nil {
				return nil, fmt.Errorf("invalid backup spin in table %s: %w", id, err)
			}
			spins = append(spins, spin)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM tables`); err != nil {
		return nil, fmt.Errorf("failed to clear tables: %w", err)
	}
	for i, id := range ids {
		// keep the backup's table order stable across restores
		createdAt := now.Add(time.Duration(i) * time.Nanosecond)
		if _, err := tx.Exec(`INSERT INTO tables (id, name, created_at) VALUES (?,?,?)`,
			id, b.Tables[id].Name, createdAt.UnixNano()); err != nil {
			return nil, fmt.Errorf("failed to insert table: %w", err)
		}
	}
	for _, spin := range spins {
		if _, err := tx.Exec(`INSERT INTO spins (id, table_id, outcome, recorded_at) VALUES (?,?,?,?)`,
			spin.ID, spin.TableID, spin.Outcome, spin.RecordedAt.UnixNano()); err != nil {
			return nil, fmt.Errorf("failed to insert spin: %w", err)
		}
	}
	for _, id := range ids {
		if err := capSpins(tx, id, s.maxSpins); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return &b, nil
}
