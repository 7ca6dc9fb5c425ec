// Package progression grows the allowed key set as keys are mastered.
package progression

import (
	"sort"

	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
)

// Unlock criteria applied to every allowed key.
const (
	MinAttempts = 20
	MinAccuracy = 0.95
)

// Controller owns the allowed key set. The set only grows until Reset.
type Controller struct {
	allowed map[rune]bool
}

// New returns a controller seeded with p's keys.
func New(p profile.Profile) *Controller {
	c := &Controller{}
	c.Reset(p)
	return c
}

// Reset replaces the allowed set with p's seed keys.
func (c *Controller) Reset(p profile.Profile) {
	c.allowed = map[rune]bool{}
	for _, r := range p.SeedKeys() {
		c.allowed[r] = true
	}
}

// Allowed returns the allowed keys in alphabetical order.
func (c *Controller) Allowed() []rune {
	out := make([]rune, 0, len(c.allowed))
	for r := range c.allowed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether key is allowed.
func (c *Controller) Contains(key rune) bool {
	return c.allowed[key]
}

// Len returns the size of the allowed set.
func (c *Controller) Len() int {
	return len(c.allowed)
}

// Qualified reports whether every allowed key meets the unlock criteria.
// A key with no statistics is not qualified.
func (c *Controller) Qualified(stats *proficiency.Model) bool {
	for r := range c.allowed {
		stat, ok := stats.Key(r)
		if !ok || stat.Attempts < MinAttempts {
			return false
		}
		if float64(stat.Hits)/float64(stat.Attempts) < MinAccuracy {
			return false
		}
	}
	return true
}

// Evaluate runs once per completed line. When all allowed keys qualify it adds
// the alphabetically first missing letter and returns it.
func (c *Controller) Evaluate(stats *proficiency.Model) (rune, bool) {
	if len(c.allowed) >= len(profile.Alphabet) || !c.Qualified(stats) {
		return 0, false
	}
	for _, r := range profile.Alphabet {
		if !c.allowed[r] {
			c.allowed[r] = true
			return r, true
		}
	}
	return 0, false
}
