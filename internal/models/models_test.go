package models

import (
	"testing"
	"time"
)

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{
			name:    "valid table",
			table:   Table{ID: "t1", Name: "Auto Roulette VIP", CreatedAt: time.Now().Add(-time.Hour)},
			wantErr: false,
		},
		{
			name:    "empty ID",
			table:   Table{Name: "Auto Roulette VIP"},
			wantErr: true,
		},
		{
			name:    "empty name",
			table:   Table{ID: "t1"},
			wantErr: true,
		},
		{
			name:    "created in the future",
			table:   Table{ID: "t1", Name: "x", CreatedAt: time.Now().Add(time.Hour)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Table.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpinValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		spin    Spin
		wantErr bool
	}{
		{
			name:    "valid zero",
			spin:    Spin{ID: "s1", TableID: "t1", Outcome: 0, RecordedAt: now},
			wantErr: false,
		},
		{
			name:    "valid 36",
			spin:    Spin{ID: "s1", TableID: "t1", Outcome: 36, RecordedAt: now},
			wantErr: false,
		},
		{
			name:    "outcome too high",
			spin:    Spin{ID: "s1", TableID: "t1", Outcome: 37, RecordedAt: now},
			wantErr: true,
		},
		{
			name:    "negative outcome",
			spin:    Spin{ID: "s1", TableID: "t1", Outcome: -1, RecordedAt: now},
			wantErr: true,
		},
		{
			name:    "missing table",
			spin:    Spin{ID: "s1", Outcome: 4, RecordedAt: now},
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			spin:    Spin{ID: "s1", TableID: "t1", Outcome: 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spin.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Spin.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
