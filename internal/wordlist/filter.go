// Package wordlist provides word list filtering helpers.
package wordlist

import (
	"strings"
	"unicode"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns a language-specific filter for word lists.
func FilterForLang(lang string) FilterFunc {
	switch strings.ToLower(lang) {
	case "en":
		return filterEnglishASCII
	default:
		return func(string) bool { return true }
	}
}

func filterEnglishASCII(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}

// Filter returns the words accepted by keep, preserving order.
func Filter(words []string, keep FilterFunc) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// sentencePunct lists the non-letter characters a sentence may contain.
const sentencePunct = " .,'-"

// AllowedWord reports whether every case-folded character of word is an allowed key or a space.
func AllowedWord(word string, allowed map[rune]bool) bool {
	for _, r := range word {
		r = unicode.ToLower(r)
		if r != ' ' && !allowed[r] {
			return false
		}
	}
	return true
}

// AllowedSentence reports whether every case-folded character of s is an allowed
// key or one of space, period, comma, apostrophe and hyphen.
func AllowedSentence(s string, allowed map[rune]bool) bool {
	for _, r := range s {
		r = unicode.ToLower(r)
		if !allowed[r] && !strings.ContainsRune(sentencePunct, r) {
			return false
		}
	}
	return true
}

// ForKeys returns a filter accepting words typeable with the allowed keys.
func ForKeys(allowed map[rune]bool) FilterFunc {
	return func(word string) bool { return AllowedWord(word, allowed) }
}

// SentencesForKeys returns a filter accepting sentences typeable with the allowed keys.
func SentencesForKeys(allowed map[rune]bool) FilterFunc {
	return func(s string) bool { return AllowedSentence(s, allowed) }
}
