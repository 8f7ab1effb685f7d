package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/rewired-gh/roulettemon/internal/analytics"
	"github.com/rewired-gh/roulettemon/internal/logger"
	"github.com/rewired-gh/roulettemon/internal/models"
	"github.com/rewired-gh/roulettemon/internal/storage"
)

type Config struct {
	WindowSize         int
	MinSpins           int
	Threshold          int
	TopK               int
	CooldownMultiplier int
	CheckpointInterval int
	Analytics          analytics.Options
}

func DefaultConfig() Config {
	return Config{
		WindowSize:         200,
		MinSpins:           20,
		Threshold:          45,
		TopK:               5,
		CooldownMultiplier: 5,
		CheckpointInterval: 12,
		Analytics:          analytics.DefaultOptions(),
	}
}

type notifiedRecord struct {
	Label  string
	Score  int
	SentAt time.Time
}

type Monitor struct {
	mu             sync.Mutex
	storage        *storage.Storage
	states         map[string]*models.TableState
	notifiedTables map[string]notifiedRecord
	config         Config
	cycleCount     int
}

func New(s *storage.Storage, config Config) *Monitor {
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = 1
	}
	m := &Monitor{
		storage:        s,
		states:         make(map[string]*models.TableState),
		notifiedTables: make(map[string]notifiedRecord),
		config:         config,
	}

	persisted, err := s.LoadAllStates()
	if err != nil {
		logger.Warn("Failed to load persisted states: %v", err)
	} else {
		m.states = persisted
		logger.Info("Loaded %d persisted table states", len(persisted))
	}

	return m
}

func (m *Monitor) getOrCreateState(tableID string) *models.TableState {
	if state, exists := m.states[tableID]; exists {
		return state
	}

	state := &models.TableState{TableID: tableID}
	m.states[tableID] = state
	return state
}

func (m *Monitor) processTable(table *models.Table, window []int) (analytics.Result, models.Alert) {
	result := analytics.Analyze(window, m.config.Analytics)
	state := m.getOrCreateState(table.ID)

	score := float64(result.Score)
	z := ScoreZ(state, score)
	UpdateWelford(state, score)
	state.LastScore = result.Score
	state.LastLabel = result.Label
	state.UpdatedAt = time.Now()

	hot := make([]int, 0, len(result.Metrics.TopHot))
	for _, h := range result.Metrics.TopHot {
		hot = append(hot, h.N)
	}

	return result, models.Alert{
		TableID:    table.ID,
		TableName:  table.Name,
		Score:      result.Score,
		Label:      result.Label,
		Flags:      result.Flags,
		ScoreZ:     z,
		N:          result.Metrics.N,
		ChiP:       result.Metrics.ChiP,
		HotSpots:   hot,
		DetectedAt: time.Now(),
	}
}

func (m *Monitor) isAlert(a models.Alert) bool {
	return a.Score >= m.config.Threshold || len(a.Flags) > 0
}

// ProcessTables analyzes the trailing window of every table and returns the
// alerts that cleared the threshold. Alerts are persisted as they are raised.
func (m *Monitor) ProcessTables() ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tables, err := m.storage.ListTables()
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	var processed, skipped, maxScore int

	for _, table := range tables {
		window, err := m.storage.RecentOutcomes(table.ID, m.config.WindowSize)
		if err != nil {
			logger.Warn("Failed to load spins for table %s: %v", table.ID, err)
			continue
		}
		if len(window) < m.config.MinSpins {
			skipped++
			logger.Debug("Table %s has %d spins, need %d", table.ID, len(window), m.config.MinSpins)
			continue
		}

		result, alert := m.processTable(table, window)
		processed++
		if result.Score > maxScore {
			maxScore = result.Score
		}

		logger.Debug("Table %s: score=%d label=%q z=%.2f chi=%.2f p=%.4f runsC=%.2f runsHL=%.2f cusum=%.2f flags=%v",
			table.ID, result.Score, result.Label, alert.ScoreZ, result.Metrics.Chi, result.Metrics.ChiP,
			result.Metrics.RunsColor, result.Metrics.RunsHighLow, result.Metrics.Cusum, result.Flags)

		if !m.isAlert(alert) {
			continue
		}
		if err := m.storage.AddAlert(&alert); err != nil {
			logger.Warn("Failed to store alert for table %s: %v", table.ID, err)
		}
		alerts = append(alerts, alert)
	}

	logger.Debug("Processed %d tables (%d below minimum): max_score=%d, %d alerts",
		processed, skipped, maxScore, len(alerts))

	m.cycleCount++
	if m.cycleCount%m.config.CheckpointInterval == 0 {
		m.checkpoint()
	}

	return alerts, nil
}

func (m *Monitor) checkpoint() {
	for tableID, state := range m.states {
		if err := m.storage.SaveState(state); err != nil {
			logger.Warn("Failed to checkpoint state for %s: %v", tableID, err)
		}
	}
}

func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.Info("Checkpointing %d table states before shutdown", len(m.states))
	m.checkpoint()
}

// Snapshot returns a copy of every table's latest state, ordered by table id.
func (m *Monitor) Snapshot() []models.TableState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.TableState, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TableID < out[j].TableID
	})
	return out
}

func labelRank(label string) int {
	switch label {
	case analytics.LabelStrong:
		return 2
	case analytics.LabelMild:
		return 1
	default:
		return 0
	}
}

// FilterRecentlySent drops alerts for tables notified within cooldown, unless
// the label has escalated since.
func (m *Monitor) FilterRecentlySent(alerts []models.Alert, cooldown time.Duration) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var result []models.Alert

	for _, alert := range alerts {
		rec, exists := m.notifiedTables[alert.TableID]
		if exists && now.Sub(rec.SentAt) < cooldown && labelRank(alert.Label) <= labelRank(rec.Label) {
			continue
		}
		result = append(result, alert)
	}

	return result
}

func (m *Monitor) RecordNotified(alerts []models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	ids := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		m.notifiedTables[alert.TableID] = notifiedRecord{
			Label:  alert.Label,
			Score:  alert.Score,
			SentAt: now,
		}
		if alert.ID != "" {
			ids = append(ids, alert.ID)
		}
	}
	if err := m.storage.MarkNotified(ids); err != nil {
		logger.Warn("Failed to mark alerts as notified: %v", err)
	}
}

func (m *Monitor) PostProcessAlerts(alerts []models.Alert, pollInterval time.Duration) []models.Alert {
	sorted := make([]models.Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if m.config.TopK > 0 && len(sorted) > m.config.TopK {
		sorted = sorted[:m.config.TopK]
	}

	cooldown := time.Duration(m.config.CooldownMultiplier) * pollInterval
	return m.FilterRecentlySent(sorted, cooldown)
}
