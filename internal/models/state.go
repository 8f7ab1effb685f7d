package models

import (
	"time"
)

// TableState is the running baseline of composite scores for one table.
type TableState struct {
	TableID string

	WelfordCount int
	WelfordMean  float64
	WelfordM2    float64

	LastScore int
	LastLabel string

	UpdatedAt time.Time
}

type Alert struct {
	ID        string
	TableID   string
	TableName string

	Score  int
	Label  string
	Flags  []string
	ScoreZ float64

	N        int
	ChiP     float64
	HotSpots []int

	DetectedAt time.Time
	Notified   bool
}
