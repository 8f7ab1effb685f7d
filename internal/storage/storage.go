// Package storage provides SQLite-backed persistence for tables, spins, score state, and alerts.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/roulettemon/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a table does not exist.
var ErrNotFound = errors.New("not found")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db       *sql.DB
	maxSpins int
}

// New opens or creates the SQLite database at dbPath. maxSpins caps the
// history kept per table; 0 keeps everything.
// An empty dbPath defaults to $TMPDIR/roulettemon/data.db.
func New(maxSpins int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "roulettemon", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxSpins: maxSpins}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tables (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spins (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			table_id    TEXT NOT NULL REFERENCES tables(id) ON DELETE CASCADE,
			outcome     INTEGER NOT NULL CHECK (outcome BETWEEN 0 AND 36),
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spins_table_seq ON spins(table_id, seq)`,
		`CREATE TABLE IF NOT EXISTS table_state (
			table_id      TEXT PRIMARY KEY REFERENCES tables(id) ON DELETE CASCADE,
			welford_count INTEGER NOT NULL DEFAULT 0,
			welford_mean  REAL NOT NULL DEFAULT 0,
			welford_m2    REAL NOT NULL DEFAULT 0,
			last_score    INTEGER NOT NULL DEFAULT 0,
			last_label    TEXT NOT NULL DEFAULT '',
			updated_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			table_id    TEXT NOT NULL REFERENCES tables(id) ON DELETE CASCADE,
			table_name  TEXT NOT NULL,
			score       INTEGER NOT NULL,
			label       TEXT NOT NULL,
			flags       TEXT NOT NULL DEFAULT '[]',
			score_z     REAL NOT NULL,
			n           INTEGER NOT NULL,
			chi_p       REAL NOT NULL,
			hot_spots   TEXT NOT NULL DEFAULT '[]',
			detected_at INTEGER NOT NULL,
			notified    INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_detected_at ON alerts(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_score ON alerts(score DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) AddTable(table *models.Table) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	_, err := s.db.Exec(`INSERT INTO tables (id, name, created_at) VALUES (?,?,?)`,
		table.ID, table.Name, table.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

func (s *Storage) GetTable(id string) (*models.Table, error) {
	var t models.Table
	var createdAtNano int64
	err := s.db.QueryRow(`SELECT id, name, created_at FROM tables WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &createdAtNano)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	t.CreatedAt = time.Unix(0, createdAtNano)
	return &t, nil
}

// ListTables returns every table, oldest first.
func (s *Storage) ListTables() ([]*models.Table, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM tables ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()
	tables := []*models.Table{}
	for rows.Next() {
		var t models.Table
		var createdAtNano int64
		if err := rows.Scan(&t.ID, &t.Name, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.CreatedAt = time.Unix(0, createdAtNano)
		tables = append(tables, &t)
	}
	return tables, rows.Err()
}

func (s *Storage) RenameTable(id, name string) error {
	if name == "" {
		return errors.New("table name must not be empty")
	}
	res, err := s.db.Exec(`UPDATE tables SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTable removes a table; spins, state and alerts cascade.
func (s *Storage) DeleteTable(id string) error {
	res, err := s.db.Exec(`DELETE FROM tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddSpins appends outcomes to a table in order, all stamped at. The whole
// batch is rejected if any outcome is out of range.
func (s *Storage) AddSpins(tableID string, outcomes []int, at time.Time) ([]models.Spin, error) {
	spins := make([]models.Spin, 0, len(outcomes))
	for _, n := range outcomes {
		spin := models.Spin{ID: uuid.New().String(), TableID: tableID, Outcome: n, RecordedAt: at}
		if err := spin.Validate(); err != nil {
			return nil, fmt.Errorf("invalid spin: %w", err)
		}
		spins = append(spins, spin)
	}
	if err := s.insertSpins(spins); err != nil {
		return nil, err
	}
	return spins, nil
}

// AppendSpins stores spins that carry their own timestamps, such as results
// pulled from a feed. Missing IDs are generated.
func (s *Storage) AppendSpins(spins []models.Spin) error {
	for i := range spins {
		if spins[i].ID == "" {
			spins[i].ID = uuid.New().String()
		}
		if err := spins[i].Validate(); err != nil {
			return fmt.Errorf("invalid spin: %w", err)
		}
	}
	return s.insertSpins(spins)
}

func (s *Storage) insertSpins(spins []models.Spin) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	tables := make(map[string]bool)
	for _, spin := range spins {
		if _, err := tx.Exec(`INSERT INTO spins (id, table_id, outcome, recorded_at) VALUES (?,?,?,?)`,
			spin.ID, spin.TableID, spin.Outcome, spin.RecordedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert spin: %w", err)
		}
		tables[spin.TableID] = true
	}
	for tableID := range tables {
		if err := capSpins(tx, tableID, s.maxSpins); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func capSpins(e execer, tableID string, limit int) error {
	if limit <= 0 {
		return nil
	}
	if _, err := e.Exec(`
		DELETE FROM spins WHERE table_id = ? AND seq NOT IN (
			SELECT seq FROM spins WHERE table_id = ? ORDER BY seq DESC LIMIT ?
		)`, tableID, tableID, limit); err != nil {
		return fmt.Errorf("failed to enforce spin cap: %w", err)
	}
	return nil
}

// RecentSpins returns up to n of the latest spins of a table, most recent last.
// n <= 0 returns the whole history.
func (s *Storage) RecentSpins(tableID string, n int) ([]models.Spin, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.Query(`
		SELECT id, table_id, outcome, recorded_at FROM (
			SELECT seq, id, table_id, outcome, recorded_at FROM spins
			WHERE table_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, tableID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query spins: %w", err)
	}
	defer rows.Close()
	spins := []models.Spin{}
	for rows.Next() {
		var sp models.Spin
		var recordedAtNano int64
		if err := rows.Scan(&sp.ID, &sp.TableID, &sp.Outcome, &recordedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan spin: %w", err)
		}
		sp.RecordedAt = time.Unix(0, recordedAtNano)
		spins = append(spins, sp)
	}
	return spins, rows.Err()
}

// RecentOutcomes is RecentSpins reduced to the outcome values.
func (s *Storage) RecentOutcomes(tableID string, n int) ([]int, error) {
	spins, err := s.RecentSpins(tableID, n)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(spins))
	for i, sp := range spins {
		out[i] = sp.Outcome
	}
	return out, nil
}

// LastSpinAt returns the timestamp of the latest spin, or the zero time.
func (s *Storage) LastSpinAt(tableID string) (time.Time, error) {
	var nano sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(recorded_at) FROM spins WHERE table_id = ?`, tableID).Scan(&nano); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last spin: %w", err)
	}
	if !nano.Valid {
		return time.Time{}, nil
	}
	return time.Unix(0, nano.Int64), nil
}

func (s *Storage) CountSpins(tableID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM spins WHERE table_id = ?`, tableID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spins: %w", err)
	}
	return n, nil
}

// UndoLastSpin removes the most recent spin of a table and returns it.
func (s *Storage) UndoLastSpin(tableID string) (*models.Spin, error) {
	spins, err := s.RecentSpins(tableID, 1)
	if err != nil {
		return nil, err
	}
	if len(spins) == 0 {
		return nil, fmt.Errorf("no spins for table %s: %w", tableID, ErrNotFound)
	}
	if _, err := s.db.Exec(`DELETE FROM spins WHERE id = ?`, spins[0].ID); err != nil {
		return nil, fmt.Errorf("failed to delete spin: %w", err)
	}
	return &spins[0], nil
}

func (s *Storage) ClearSpins(tableID string) error {
	if _, err := s.db.Exec(`DELETE FROM spins WHERE table_id = ?`, tableID); err != nil {
		return fmt.Errorf("failed to clear spins: %w", err)
	}
	return nil
}

// RotateSpins trims every table to the newest maxSpins spins.
func (s *Storage) RotateSpins() error {
	tables, err := s.ListTables()
	if err != nil {
		return fmt.Errorf("failed to rotate spins: %w", err)
	}
	for _, t := range tables {
		if err := capSpins(s.db, t.ID, s.maxSpins); err != nil {
			return fmt.Errorf("failed to rotate spins: %w", err)
		}
	}
	return nil
}

func (s *Storage) SaveState(state *models.TableState) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO table_state
			(table_id, welford_count, welford_mean, welford_m2, last_score, last_label, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		state.TableID, state.WelfordCount, state.WelfordMean, state.WelfordM2,
		state.LastScore, state.LastLabel, state.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *Storage) LoadAllStates() (map[string]*models.TableState, error) {
	rows, err := s.db.Query(`
		SELECT table_id, welford_count, welford_mean, welford_m2, last_score, last_label, updated_at
		FROM table_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*models.TableState)
	for rows.Next() {
		var state models.TableState
		var updatedAtNano int64
		err := rows.Scan(
			&state.TableID, &state.WelfordCount, &state.WelfordMean, &state.WelfordM2,
			&state.LastScore, &state.LastLabel, &updatedAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		state.UpdatedAt = time.Unix(0, updatedAtNano)
		states[state.TableID] = &state
	}
	return states, rows.Err()
}

func (s *Storage) AddAlert(alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	flagsJSON, err := json.Marshal(alert.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	hotJSON, err := json.Marshal(alert.HotSpots)
	if err != nil {
		return fmt.Errorf("failed to marshal hot spots: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO alerts
			(id, table_id, table_name, score, label, flags, score_z, n, chi_p, hot_spots, detected_at, notified)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		alert.ID, alert.TableID, alert.TableName, alert.Score, alert.Label, string(flagsJSON),
		alert.ScoreZ, alert.N, alert.ChiP, string(hotJSON),
		alert.DetectedAt.UnixNano(), boolToInt(alert.Notified),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkNotified flags stored alerts as delivered.
func (s *Storage) MarkNotified(ids []string) error {
	for _, id := range ids {
		if _, err := s.db.Exec(`UPDATE alerts SET notified = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to mark alert notified: %w", err)
		}
	}
	return nil
}

// GetTopAlerts returns up to k stored alerts, highest score first.
func (s *Storage) GetTopAlerts(k int) ([]models.Alert, error) {
	rows, err := s.db.Query(`
		SELECT id, table_id, table_name, score, label, flags, score_z, n, chi_p, hot_spots, detected_at, notified
		FROM alerts ORDER BY score DESC, detected_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var flagsJSON, hotJSON string
		var detectedAtNano int64
		var notified int

		err := rows.Scan(
			&a.ID, &a.TableID, &a.TableName, &a.Score, &a.Label, &flagsJSON,
			&a.ScoreZ, &a.N, &a.ChiP, &hotJSON, &detectedAtNano, &notified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(flagsJSON), &a.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
		if err := json.Unmarshal([]byte(hotJSON), &a.HotSpots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hot spots: %w", err)
		}
		a.DetectedAt = time.Unix(0, detectedAtNano)
		a.Notified = notified != 0
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// ClearAlerts empties the alert log.
func (s *Storage) ClearAlerts() error {
	if _, err := s.db.Exec(`DELETE FROM alerts`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
