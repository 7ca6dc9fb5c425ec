// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	Profile      string
	WordListPath string
	History      bool
	Seed         int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Profile     string
	Since       *time.Time
	Last        int
	CurveWindow int
	Chars       string
}

// SessionStats captures a completed practice line.
type SessionStats struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	Profile      string
	Line         string
	TotalChars   int
	CorrectChars int
	Errors       int
	AvgWPM       float64
	Accuracy     float64
	UnlockedKey  string
	DurationMs   int64
}

// KeyStats stores per-key stats for a session.
type KeyStats struct {
	Key        string
	Attempts   int
	Hits       int
	Errors     int
	DelaySumMs int64
	DelayCount int64
}

// PairStats stores per-pair stats for a session.
type PairStats struct {
	Pair   string
	Hits   int
	Errors int
}

// Aggregated per-key stats for selection or reporting.

// KeyAggregate aggregates key stats across sessions.
type KeyAggregate struct {
	Key        string
	Attempts   int
	Hits       int
	Errors     int
	DelaySumMs int64
	DelayCount int64
}

// PairAggregate aggregates pair stats across sessions.
type PairAggregate struct {
	Pair   string
	Hits   int
	Errors int
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID   string
	EndedAt     time.Time
	Profile     string
	Correct     int
	Incorrect   int
	AvgWPM      float64
	UnlockedKey string
	DurationMs  int64
}
