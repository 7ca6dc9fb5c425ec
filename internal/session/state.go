// Package session drives a practice session from keystroke and timer events.
package session

import (
	"time"

	"github.com/verte-zerg/keydrill/internal/proficiency"
)

// State is the session lifecycle state.
type State int

// Session states.
const (
	StateIdle State = iota
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Key is one keystroke from the display layer. At carries the arrival time;
// a zero At is stamped with the engine clock.
type Key struct {
	Rune      rune
	Backspace bool
	At        time.Time
}

// Char returns a keystroke for r.
func Char(r rune, at time.Time) Key {
	return Key{Rune: r, At: at}
}

// Backspace returns a backspace keystroke.
func Backspace(at time.Time) Key {
	return Key{Backspace: true, At: at}
}

// EventKind identifies an engine notification.
type EventKind int

// Event kinds.
const (
	EventStarted EventKind = iota
	EventSampled
	EventCompleted
	EventUnlocked
	EventProfileSwitched
)

// Event is delivered to the notify callback after the engine lock is released.
type Event struct {
	Kind    EventKind
	Sample  Sample
	Key     rune
	Profile string
	Summary *Summary
}

// Sample is one metrics sampler reading.
type Sample struct {
	At       time.Time
	WPM      float64
	Accuracy float64
}

// Metrics accumulates counters and samples for the active line.
type Metrics struct {
	WPMSamples      []float64
	AccuracySamples []float64
	TotalChars      int
	CorrectChars    int
	Errors          int
	StartTime       time.Time
}

// Accuracy returns CorrectChars/TotalChars as a percentage, 100 before any input.
func (m Metrics) Accuracy() float64 {
	if m.TotalChars == 0 {
		return 100
	}
	return float64(m.CorrectChars) / float64(m.TotalChars) * 100
}

// LiveWPM returns the most recent WPM sample, 0 before the first sample.
func (m Metrics) LiveWPM() float64 {
	if len(m.WPMSamples) == 0 {
		return 0
	}
	return m.WPMSamples[len(m.WPMSamples)-1]
}

// AverageWPM returns the mean WPM sample, 0 without samples.
func (m Metrics) AverageWPM() float64 {
	if len(m.WPMSamples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.WPMSamples {
		sum += v
	}
	return sum / float64(len(m.WPMSamples))
}

func (m Metrics) clone() Metrics {
	m.WPMSamples = append([]float64(nil), m.WPMSamples...)
	m.AccuracySamples = append([]float64(nil), m.AccuracySamples...)
	return m
}

// Snapshot is an immutable view of the engine for display layers.
type Snapshot struct {
	State        State
	Profile      string
	Line         string
	Input        string
	Cursor       int
	WPM          float64
	Accuracy     float64
	Errors       int
	TotalChars   int
	CorrectChars int
	RealWords    bool
	Allowed      []rune
	Scores       map[rune]float64
	Bands        map[rune]proficiency.Band
	Summary      *Summary
}
