package session

import (
	"sort"
	"time"

	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/stats"
)

// TopN is the number of weak keys and pairs reported in a summary.
const TopN = 5

// Summary describes a completed line.
type Summary struct {
	SessionID       string
	Profile         string
	Line            string
	StartedAt       time.Time
	EndedAt         time.Time
	AverageWPM      float64
	FinalWPM        float64
	Accuracy        float64
	WPMSamples      []float64
	AccuracySamples []float64
	TotalChars      int
	CorrectChars    int
	Errors          int
	RealWords       bool
	WeakKeys        []proficiency.KeyScore
	WeakPairs       []proficiency.PairScore
	UnlockedKey     rune
	// Keys and Pairs count this line only; the journal sums them per query.
	Keys            []model.KeyStats
	Pairs           []model.PairStats
}

// Duration returns the time from start to the final keystroke.
func (s *Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Record converts the summary into journal rows.
func (s *Summary) Record() (model.SessionStats, []model.KeyStats, []model.PairStats) {
	unlocked := ""
	if s.UnlockedKey != 0 {
		unlocked = string(s.UnlockedKey)
	}
	session := model.SessionStats{
		ID:           s.SessionID,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		Profile:      s.Profile,
		Line:         s.Line,
		TotalChars:   s.TotalChars,
		CorrectChars: s.CorrectChars,
		Errors:       s.Errors,
		AvgWPM:       s.AverageWPM,
		Accuracy:     s.Accuracy,
		UnlockedKey:  unlocked,
		DurationMs:   s.Duration().Milliseconds(),
	}
	keys := append([]model.KeyStats(nil), s.Keys...)
	pairs := append([]model.PairStats(nil), s.Pairs...)
	return session, keys, pairs
}

func (e *Engine) buildSummary(at time.Time, unlocked rune) *Summary {
	m := e.metrics
	return &Summary{
		SessionID:       e.sessionID,
		Profile:         e.profile.Name,
		Line:            string(e.line),
		StartedAt:       m.StartTime,
		EndedAt:         at,
		AverageWPM:      m.AverageWPM(),
		FinalWPM:        stats.WPM(m.CorrectChars, at.Sub(m.StartTime)),
		Accuracy:        m.Accuracy(),
		WPMSamples:      append([]float64(nil), m.WPMSamples...),
		AccuracySamples: append([]float64(nil), m.AccuracySamples...),
		TotalChars:      m.TotalChars,
		CorrectChars:    m.CorrectChars,
		Errors:          m.Errors,
		RealWords:       e.realWords,
		WeakKeys:        e.stats.TopWeakKeys(TopN),
		WeakPairs:       e.stats.TopWeakPairs(TopN),
		UnlockedKey:     unlocked,
		Keys:            e.tally.keyStats(),
		Pairs:           e.tally.pairStats(),
	}
}

// tally counts per-key and per-pair results for the current line only.
type tally struct {
	keys  map[rune]*model.KeyStats
	pairs map[string]*model.PairStats
}

func newTally() *tally {
	return &tally{
		keys:  make(map[rune]*model.KeyStats),
		pairs: make(map[string]*model.PairStats),
	}
}

func (t *tally) key(r rune, isError bool, delayMs float64, hasDelay bool) {
	entry := t.keys[r]
	if entry == nil {
		entry = &model.KeyStats{Key: string(r)}
		t.keys[r] = entry
	}
	entry.Attempts++
	if isError {
		entry.Errors++
	} else {
		entry.Hits++
	}
	if hasDelay {
		entry.DelaySumMs += int64(delayMs)
		entry.DelayCount++
	}
}

func (t *tally) pair(p string, isError bool) {
	entry := t.pairs[p]
	if entry == nil {
		entry = &model.PairStats{Pair: p}
		t.pairs[p] = entry
	}
	if isError {
		entry.Errors++
	} else {
		entry.Hits++
	}
}

func (t *tally) keyStats() []model.KeyStats {
	out := make([]model.KeyStats, 0, len(t.keys))
	for _, entry := range t.keys {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (t *tally) pairStats() []model.PairStats {
	out := make([]model.PairStats, 0, len(t.pairs))
	for _, entry := range t.pairs {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}
