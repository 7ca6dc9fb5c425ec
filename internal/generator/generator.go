// Package generator builds practice lines biased toward weak keys.
package generator

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
	"github.com/verte-zerg/keydrill/internal/wordlist"
)

// MinKeysForRealWords is the allowed-set size below which real words are never used.
const MinKeysForRealWords = 10

// MinKeysForSentences is the allowed-set size below which sentences are only
// considered in sentence-only mode.
const MinKeysForSentences = 20

const vowels = "aeiou"

// Generator produces randomized practice lines.
type Generator struct {
	rnd       *rand.Rand
	sentences []string
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Generator drawing from src and the built-in sentences.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src), sentences: wordlist.Sentences()}
}

// WithSentences replaces the sentence corpus.
func (g *Generator) WithSentences(sentences []string) *Generator {
	g.sentences = append([]string(nil), sentences...)
	return g
}

// Request describes one line to generate.
type Request struct {
	Profile   profile.Profile
	Allowed   []rune
	RealWords bool
	Stats     *proficiency.Model
}

// GenerateLine returns one practice line. It is empty only when no key is allowed.
func (g *Generator) GenerateLine(req Request) string {
	if len(req.Allowed) == 0 {
		return ""
	}
	stats := req.Stats
	if stats == nil {
		stats = proficiency.New()
	}
	allowed := make(map[rune]bool, len(req.Allowed))
	for _, r := range req.Allowed {
		allowed[r] = true
	}
	realWords := req.RealWords && len(allowed) >= MinKeysForRealWords
	sentenceOnly := req.Profile.SentenceOnly()
	weakKeys := stats.WeakKeys(proficiency.DefaultMinAttempts, proficiency.DefaultMinDifficulty)

	if req.Profile.UseSentences && len(allowed) >= MinKeysForSentences {
		chance := 0.5
		switch {
		case sentenceOnly:
			chance = 1.0
		case realWords:
			chance = 0.7
		}
		if g.rnd.Float64() < chance {
			if s, ok := g.pickSentence(allowed, weakKeys, !sentenceOnly); ok {
				return s
			}
		}
	}
	if sentenceOnly {
		if s, ok := g.pickSentence(allowed, weakKeys, true); ok {
			return s
		}
	}

	var pool []string
	if realWords {
		pool = wordlist.Filter(req.Profile.Pool(), wordlist.ForKeys(allowed))
	}
	wordsPerLine := req.Profile.WordsPerLine
	if wordsPerLine <= 0 {
		wordsPerLine = 1
	}
	words := make([]string, 0, wordsPerLine)
	for i := 0; i < wordsPerLine; i++ {
		if len(pool) > 0 && g.rnd.Float64() < 0.8 {
			words = append(words, g.pickWord(pool, weakKeys, stats))
			continue
		}
		word := g.pseudoWord(stats, req.Allowed, 3+g.rnd.Intn(3))
		if word == "" {
			word = strings.Repeat(string(req.Allowed[len(req.Allowed)-1]), 3)
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}

func (g *Generator) pickSentence(allowed map[rune]bool, weakKeys []rune, preferWeak bool) (string, bool) {
	eligible := wordlist.Filter(g.sentences, wordlist.SentencesForKeys(allowed))
	if len(eligible) == 0 {
		return "", false
	}
	if preferWeak && len(weakKeys) > 0 {
		var matching []string
		for _, s := range eligible {
			if containsAny(strings.ToLower(s), weakKeys) {
				matching = append(matching, s)
			}
		}
		if len(matching) > 0 {
			return pickUniform(g.rnd, matching), true
		}
	}
	return pickUniform(g.rnd, eligible), true
}

func (g *Generator) pickWord(pool []string, weakKeys []rune, stats *proficiency.Model) string {
	if len(weakKeys) > 0 && g.rnd.Float64() < 0.5 {
		key := pickUniform(g.rnd, weakKeys)
		if matching := wordsContaining(pool, string(key)); len(matching) > 0 {
			return pickUniform(g.rnd, matching)
		}
	}
	weakPairs := stats.WeakPairs(proficiency.DefaultMinPairTotal, proficiency.DefaultMinPairErrors)
	if len(weakPairs) > 0 && g.rnd.Float64() < 0.4 {
		pair := pickUniform(g.rnd, weakPairs)
		if matching := wordsContaining(pool, pair); len(matching) > 0 {
			return pickUniform(g.rnd, matching)
		}
	}
	return pickUniform(g.rnd, pool)
}

// pseudoWord alternates consonants and vowels, starting with a consonant, each
// drawn with weight ceil(difficulty*10). Every key weighs at least 1 so a
// mastered key still shows up.
func (g *Generator) pseudoWord(stats *proficiency.Model, keys []rune, length int) string {
	var consonants, vows, all picker[rune]
	for _, k := range keys {
		w := math.Max(1, math.Ceil(stats.DifficultyScore(k)*10))
		all.add(k, w)
		if strings.ContainsRune(vowels, k) {
			vows.add(k, w)
		} else {
			consonants.add(k, w)
		}
	}
	if all.empty() {
		return ""
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		p := &consonants
		if i%2 == 1 {
			p = &vows
		}
		if consonants.empty() || vows.empty() {
			p = &all
		}
		b.WriteRune(p.pick(g.rnd))
	}
	return b.String()
}

func containsAny(s string, keys []rune) bool {
	for _, k := range keys {
		if strings.ContainsRune(s, k) {
			return true
		}
	}
	return false
}

func wordsContaining(pool []string, sub string) []string {
	var out []string
	for _, w := range pool {
		if strings.Contains(w, sub) {
			out = append(out, w)
		}
	}
	return out
}
