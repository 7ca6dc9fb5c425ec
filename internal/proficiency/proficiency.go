// Package proficiency tracks per-key and per-pair typing statistics.
package proficiency

import (
	"sort"
	"time"
)

// Default thresholds for weak key and pair selection.
const (
	DefaultMinAttempts   = 5
	DefaultMinDifficulty = 0.15
	DefaultMinPairTotal  = 3
	DefaultMinPairErrors = 0.15
)

// KeyStat holds the statistics of one practiced character.
// Attempts always equals Hits + Errors.
type KeyStat struct {
	Attempts      uint
	Hits          uint
	Errors        uint
	LastErrorTime time.Time
	delays        delayRing
}

// Delays returns the recent inter-key delays in milliseconds, oldest first.
func (s *KeyStat) Delays() []float64 {
	return s.delays.values()
}

// AverageDelayMs returns the mean of the recent delays, or 0 if none were recorded.
func (s *KeyStat) AverageDelayMs() float64 {
	return s.delays.mean()
}

// ErrorRate returns Errors/Attempts, or 0 for an untried key.
func (s *KeyStat) ErrorRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Attempts)
}

// PairStat holds the statistics of an ordered two-character sequence.
type PairStat struct {
	Hits   uint
	Errors uint
}

// Total returns the number of observations.
func (s PairStat) Total() uint {
	return s.Hits + s.Errors
}

// ErrorRate returns Errors/Total, or 0 when unobserved.
func (s PairStat) ErrorRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Errors) / float64(total)
}

// KeyScore is a ranked weak key.
type KeyScore struct {
	Key        rune
	Attempts   uint
	ErrorRate  float64
	Difficulty float64
}

// PairScore is a ranked weak pair.
type PairScore struct {
	Pair      string
	Total     uint
	ErrorRate float64
}

// Model owns the key and pair statistics. It is not safe for concurrent use;
// the session engine serializes access.
type Model struct {
	keys      map[rune]*KeyStat
	keyOrder  []rune
	pairs     map[string]*PairStat
	pairOrder []string
	now       func() time.Time
}

// New returns an empty model.
func New() *Model {
	m := &Model{now: time.Now}
	m.Reset()
	return m
}

// SetClock overrides the clock used for LastErrorTime.
func (m *Model) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Reset clears all key and pair statistics.
func (m *Model) Reset() {
	m.keys = map[rune]*KeyStat{}
	m.keyOrder = nil
	m.pairs = map[string]*PairStat{}
	m.pairOrder = nil
}

// RecordAttempt records one keystroke for key.
func (m *Model) RecordAttempt(key rune, isError bool, interKeyDelayMs float64) {
	stat, ok := m.keys[key]
	if !ok {
		stat = &KeyStat{}
		m.keys[key] = stat
		m.keyOrder = append(m.keyOrder, key)
	}
	stat.Attempts++
	if isError {
		stat.Errors++
		stat.LastErrorTime = m.now()
		return
	}
	stat.Hits++
	if interKeyDelayMs > 0 {
		stat.delays.push(interKeyDelayMs)
	}
}

// RecordPair records the second keystroke of an ordered pair.
func (m *Model) RecordPair(pair string, isError bool) {
	stat, ok := m.pairs[pair]
	if !ok {
		stat = &PairStat{}
		m.pairs[pair] = stat
		m.pairOrder = append(m.pairOrder, pair)
	}
	if isError {
		stat.Errors++
		return
	}
	stat.Hits++
}

// Key returns a copy of the stats for key.
func (m *Model) Key(key rune) (KeyStat, bool) {
	stat, ok := m.keys[key]
	if !ok {
		return KeyStat{}, false
	}
	return *stat, true
}

// Pair returns the stats for pair.
func (m *Model) Pair(pair string) (PairStat, bool) {
	stat, ok := m.pairs[pair]
	if !ok {
		return PairStat{}, false
	}
	return *stat, true
}

// Keys returns the recorded keys in first-seen order.
func (m *Model) Keys() []rune {
	return append([]rune(nil), m.keyOrder...)
}

// Pairs returns the recorded pairs in first-seen order.
func (m *Model) Pairs() []string {
	return append([]string(nil), m.pairOrder...)
}

// DifficultyScore returns 1 for an untried key, otherwise
// errorRate*0.7 + (averageDelayMs/500)*0.3.
func (m *Model) DifficultyScore(key rune) float64 {
	stat, ok := m.keys[key]
	if !ok {
		return 1
	}
	return Difficulty(stat)
}

// Difficulty scores a single stat the way DifficultyScore does.
func Difficulty(stat *KeyStat) float64 {
	if stat == nil || stat.Attempts == 0 {
		return 1
	}
	return stat.ErrorRate()*0.7 + (stat.AverageDelayMs()/500)*0.3
}

// Scores returns the difficulty score of every recorded key.
func (m *Model) Scores() map[rune]float64 {
	out := make(map[rune]float64, len(m.keys))
	for k, stat := range m.keys {
		out[k] = Difficulty(stat)
	}
	return out
}

// WeakKeys returns keys with at least minAttempts attempts and a difficulty of
// at least minDifficulty, in first-seen order.
func (m *Model) WeakKeys(minAttempts uint, minDifficulty float64) []rune {
	var out []rune
	for _, k := range m.keyOrder {
		stat := m.keys[k]
		if stat.Attempts >= minAttempts && Difficulty(stat) >= minDifficulty {
			out = append(out, k)
		}
	}
	return out
}

// WeakPairs returns pairs with at least minTotal observations and an error rate
// of at least minErrorRate, in first-seen order.
func (m *Model) WeakPairs(minTotal uint, minErrorRate float64) []string {
	var out []string
	for _, p := range m.pairOrder {
		stat := m.pairs[p]
		if stat.Total() >= minTotal && stat.ErrorRate() >= minErrorRate {
			out = append(out, p)
		}
	}
	return out
}

// TopWeakKeys ranks keys with at least DefaultMinAttempts attempts by
// difficulty, descending. Ties keep first-seen order.
func (m *Model) TopWeakKeys(n int) []KeyScore {
	var out []KeyScore
	for _, k := range m.keyOrder {
		stat := m.keys[k]
		if stat.Attempts < DefaultMinAttempts {
			continue
		}
		out = append(out, KeyScore{
			Key:        k,
			Attempts:   stat.Attempts,
			ErrorRate:  stat.ErrorRate(),
			Difficulty: Difficulty(stat),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Difficulty > out[j].Difficulty
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopWeakPairs ranks pairs with at least DefaultMinPairTotal observations by
// error rate, descending. Ties keep first-seen order.
func (m *Model) TopWeakPairs(n int) []PairScore {
	var out []PairScore
	for _, p := range m.pairOrder {
		stat := m.pairs[p]
		if stat.Total() < DefaultMinPairTotal {
			continue
		}
		out = append(out, PairScore{Pair: p, Total: stat.Total(), ErrorRate: stat.ErrorRate()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ErrorRate > out[j].ErrorRate
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
