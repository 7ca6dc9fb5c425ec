// Package profile defines the canonical difficulty profiles.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/keydrill/internal/wordlist"
)

// Alphabet is the full practice key set.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// Profile names.
const (
	Beginner      = "beginner"
	Intermediate  = "intermediate"
	Advanced      = "advanced"
	Expert        = "expert"
	SentencesOnly = "sentences"
)

// Threshold is the prior-session performance needed to offer real words.
type Threshold struct {
	Accuracy float64 // fraction, 0-1
	WPM      float64
}

// Profile is an immutable difficulty configuration.
type Profile struct {
	Name              string
	Description       string
	seedKeys          []rune
	pool              []string
	customPool        bool
	RealWordThreshold Threshold
	WordsPerLine      int
	UseSentences      bool
}

// SeedKeys returns a copy of the profile's initial key set, sorted.
func (p Profile) SeedKeys() []rune {
	out := make([]rune, len(p.seedKeys))
	copy(out, p.seedKeys)
	return out
}

// Pool returns the candidate word list. Callers must not mutate it.
func (p Profile) Pool() []string {
	if len(p.pool) == 0 {
		return wordlist.DefaultPool()
	}
	return p.pool
}

// SentenceOnly reports whether the profile forces sentence mode.
func (p Profile) SentenceOnly() bool {
	return p.UseSentences && p.WordsPerLine == 1
}

// WithPool returns a copy of p using words as its candidate pool. The pool
// follows the profile through Next.
func (p Profile) WithPool(words []string) Profile {
	p.pool = append([]string(nil), words...)
	p.customPool = true
	return p
}

// MeetsThreshold reports whether accuracy (fraction) and wpm clear the real-word threshold.
func (p Profile) MeetsThreshold(accuracy, wpm float64) bool {
	return accuracy >= p.RealWordThreshold.Accuracy && wpm >= p.RealWordThreshold.WPM
}

func keys(s string) []rune {
	out := []rune(s)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var canonical = []Profile{
	{
		Name:              Beginner,
		Description:       "Home row",
		seedKeys:          keys("asdfjkl"),
		pool:              wordlist.Pool(wordlist.PoolBeginner),
		RealWordThreshold: Threshold{Accuracy: 0.90, WPM: 30},
		WordsPerLine:      6,
	},
	{
		Name:              Intermediate,
		Description:       "Home row + G, H",
		seedKeys:          keys("asdfghjkl"),
		pool:              wordlist.Pool(wordlist.PoolBeginner, wordlist.PoolCommon, wordlist.PoolIntermediate),
		RealWordThreshold: Threshold{Accuracy: 0.92, WPM: 35},
		WordsPerLine:      8,
	},
	{
		Name:              Advanced,
		Description:       "All keys",
		seedKeys:          keys(Alphabet),
		pool:              wordlist.DefaultPool(),
		RealWordThreshold: Threshold{Accuracy: 0.95, WPM: 40},
		WordsPerLine:      10,
		UseSentences:      true,
	},
	{
		Name:              Expert,
		Description:       "All keys, higher threshold",
		seedKeys:          keys(Alphabet),
		pool:              wordlist.DefaultPool(),
		RealWordThreshold: Threshold{Accuracy: 0.98, WPM: 50},
		WordsPerLine:      12,
		UseSentences:      true,
	},
	{
		Name:              SentencesOnly,
		Description:       "Sentences only",
		seedKeys:          keys(Alphabet),
		pool:              wordlist.DefaultPool(),
		RealWordThreshold: Threshold{Accuracy: 0.95, WPM: 40},
		WordsPerLine:      1,
		UseSentences:      true,
	},
}

// All returns the canonical profiles in menu order.
func All() []Profile {
	out := make([]Profile, len(canonical))
	copy(out, canonical)
	return out
}

// Names returns the canonical profile names in menu order.
func Names() []string {
	names := make([]string, len(canonical))
	for i, p := range canonical {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the canonical profile with the given name.
func Lookup(name string) (Profile, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "sentences-only" {
		name = SentencesOnly
	}
	for _, p := range canonical {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Default returns the beginner profile.
func Default() Profile {
	return canonical[0]
}

// Next returns the profile after p in menu order, wrapping around. A pool set
// with WithPool carries over.
func Next(p Profile) Profile {
	next := canonical[0]
	for i, c := range canonical {
		if c.Name == p.Name {
			next = canonical[(i+1)%len(canonical)]
			break
		}
	}
	if p.customPool {
		next = next.WithPool(p.pool)
	}
	return next
}
