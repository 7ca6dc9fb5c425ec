package generator

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
)

func seeded(seed int64) *Generator {
	return NewWithSource(rand.NewSource(seed))
}

func mustProfile(t *testing.T, name string) profile.Profile {
	t.Helper()
	p, err := profile.Lookup(name)
	require.NoError(t, err)
	return p
}

func onlyRunes(s, allowed string) bool {
	for _, r := range s {
		if r != ' ' && !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return true
}

func TestGenerateLineEmptyKeySet(t *testing.T) {
	g := seeded(1)
	line := g.GenerateLine(Request{Profile: profile.Default()})
	assert.Equal(t, "", line)
}

func TestGenerateLineSingleKey(t *testing.T) {
	g := seeded(2)
	for i := 0; i < 100; i++ {
		line := g.GenerateLine(Request{Profile: profile.Default(), Allowed: []rune{'a'}})
		require.NotEmpty(t, line)
		require.True(t, onlyRunes(line, "a"), "line %q", line)
	}
}

func TestGenerateLineWordCountAndLength(t *testing.T) {
	g := seeded(3)
	p := mustProfile(t, profile.Intermediate)
	allowed := p.SeedKeys()
	for i := 0; i < 200; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: allowed})
		words := strings.Split(line, " ")
		require.Len(t, words, p.WordsPerLine)
		for _, w := range words {
			require.GreaterOrEqual(t, len(w), 3)
			require.LessOrEqual(t, len(w), 5)
			require.True(t, onlyRunes(w, string(allowed)), "word %q", w)
		}
	}
}

func TestPseudoWordAlternatesConsonantVowel(t *testing.T) {
	g := seeded(4)
	for i := 0; i < 100; i++ {
		line := g.GenerateLine(Request{Profile: profile.Default(), Allowed: []rune("ab")})
		for _, w := range strings.Split(line, " ") {
			require.True(t, strings.HasPrefix("babab", w), "word %q", w)
		}
	}
}

func TestPseudoWordKeepsMasteredKeys(t *testing.T) {
	stats := proficiency.New()
	// A single correct first keystroke records no delay, so 's' scores 0.
	stats.RecordAttempt('s', false, 0)
	require.Zero(t, stats.DifficultyScore('s'))

	g := seeded(5)
	seen := false
	for i := 0; i < 50 && !seen; i++ {
		line := g.GenerateLine(Request{Profile: profile.Default(), Allowed: []rune("as"), Stats: stats})
		require.True(t, onlyRunes(line, "as"), "line %q", line)
		seen = strings.ContainsRune(line, 's')
	}
	assert.True(t, seen, "zero-score key never generated")
}

func TestWeightsFavorDifficultKeys(t *testing.T) {
	stats := proficiency.New()
	// 'd' is slow and error-prone, 'f' is nearly perfect.
	for i := 0; i < 10; i++ {
		stats.RecordAttempt('d', i%2 == 0, 600)
		stats.RecordAttempt('f', false, 20)
	}
	g := seeded(7)
	counts := map[rune]int{}
	for i := 0; i < 300; i++ {
		line := g.GenerateLine(Request{Profile: profile.Default(), Allowed: []rune("df"), Stats: stats})
		for _, r := range line {
			counts[r]++
		}
	}
	assert.Greater(t, counts['d'], counts['f']*3)
}

func TestRealWordsRequireTenKeys(t *testing.T) {
	// None of these can come out of the consonant/vowel pseudo-word builder.
	pool := []string{"fall", "flask", "ask"}
	p := profile.Default().WithPool(pool)
	g := seeded(8)
	for i := 0; i < 50; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: p.SeedKeys(), RealWords: true})
		for _, w := range strings.Split(line, " ") {
			require.NotContains(t, pool, w)
		}
	}
}

func TestRealWordsMixWithPseudoWords(t *testing.T) {
	pool := []string{"sad", "lad", "fall", "glass", "hash", "the"}
	p := profile.Default().WithPool(pool)
	allowed := []rune("asdfghjklo")
	g := seeded(9)
	real, total := 0, 0
	for i := 0; i < 500; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: allowed, RealWords: true})
		for _, w := range strings.Split(line, " ") {
			total++
			require.NotEqual(t, "the", w)
			require.True(t, onlyRunes(w, string(allowed)), "word %q", w)
			for _, candidate := range pool {
				if w == candidate {
					real++
					break
				}
			}
		}
	}
	ratio := float64(real) / float64(total)
	assert.InDelta(t, 0.8, ratio, 0.05)
}

func TestRealWordsPreferWeakKeys(t *testing.T) {
	stats := proficiency.New()
	for i := 0; i < 6; i++ {
		stats.RecordAttempt('j', true, 0)
	}
	pool := []string{"sad", "lad", "fall", "glass", "jag"}
	p := profile.Default().WithPool(pool)
	g := seeded(10)
	weak, real := 0, 0
	for i := 0; i < 1000; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: []rune("asdfghjklo"), RealWords: true, Stats: stats})
		for _, w := range strings.Split(line, " ") {
			if w == "jag" {
				weak++
			}
			for _, c := range pool {
				if w == c {
					real++
				}
			}
		}
	}
	// 0.5 targeted + 0.5 * 1/5 uniform.
	assert.InDelta(t, 0.6, float64(weak)/float64(real), 0.05)
}

func TestRealWordsPreferWeakPairs(t *testing.T) {
	stats := proficiency.New()
	for i := 0; i < 4; i++ {
		stats.RecordPair("la", true)
	}
	pool := []string{"sad", "fad", "dash", "lad"}
	p := profile.Default().WithPool(pool)
	g := seeded(11)
	pair, real := 0, 0
	for i := 0; i < 1000; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: []rune("asdfghjklo"), RealWords: true, Stats: stats})
		for _, w := range strings.Split(line, " ") {
			if w == "lad" {
				pair++
			}
			for _, c := range pool {
				if w == c {
					real++
				}
			}
		}
	}
	// 0.4 targeted + 0.6 * 1/4 uniform.
	assert.InDelta(t, 0.55, float64(pair)/float64(real), 0.05)
}

func TestSentenceOnlyReturnsEligibleSentence(t *testing.T) {
	sentences := []string{"Can you help me?", "It's a close-knit group.", "Hello there, friend."}
	g := seeded(12).WithSentences(sentences)
	p := mustProfile(t, profile.SentencesOnly)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: p.SeedKeys()})
		require.NotEqual(t, "Can you help me?", line)
		require.Contains(t, sentences, line)
		seen[line] = true
	}
	assert.Len(t, seen, 2)
}

func TestSentenceOnlyFallsBackToWords(t *testing.T) {
	g := seeded(13).WithSentences([]string{"Nothing fits here."})
	p := mustProfile(t, profile.SentencesOnly)
	line := g.GenerateLine(Request{Profile: p, Allowed: []rune{'a'}})
	assert.NotEmpty(t, line)
	assert.True(t, onlyRunes(line, "a"), "line %q", line)
}

func TestSentencesPreferWeakKeys(t *testing.T) {
	stats := proficiency.New()
	for i := 0; i < 6; i++ {
		stats.RecordAttempt('x', true, 0)
	}
	g := seeded(14).WithSentences([]string{"A cat sat.", "Six boxes."})
	p := mustProfile(t, profile.Advanced)
	sentences := 0
	for i := 0; i < 400; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: p.SeedKeys(), Stats: stats})
		require.NotEqual(t, "A cat sat.", line)
		if line == "Six boxes." {
			sentences++
		}
	}
	assert.InDelta(t, 0.5, float64(sentences)/400, 0.08)
}

func TestSentencesNeedTwentyKeys(t *testing.T) {
	g := seeded(15).WithSentences([]string{"a sad lad."})
	p := mustProfile(t, profile.Advanced)
	for i := 0; i < 50; i++ {
		line := g.GenerateLine(Request{Profile: p, Allowed: []rune("asdfjkl")})
		require.NotEqual(t, "a sad lad.", line)
	}
}

func TestPickerDistribution(t *testing.T) {
	var p picker[string]
	p.add("a", 1)
	p.add("zero", 0)
	p.add("b", 3)
	rnd := rand.New(rand.NewSource(16))
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[p.pick(rnd)]++
	}
	assert.Zero(t, counts["zero"])
	assert.InDelta(t, 0.75, float64(counts["b"])/4000, 0.03)
}
