package wordlist

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed data/*.txt
var poolFS embed.FS

// Built-in pool names.
const (
	PoolBeginner     = "beginner"
	PoolCommon       = "common"
	PoolIntermediate = "intermediate"
	PoolAdvanced     = "advanced"
)

var (
	pools     = map[string][]string{}
	sentences []string
)

func init() {
	for _, name := range []string{PoolBeginner, PoolCommon, PoolIntermediate, PoolAdvanced} {
		pools[name] = mustLoadEmbedded(name)
	}
	sentences = mustLoadEmbedded("sentences")
}

func mustLoadEmbedded(name string) []string {
	data, err := poolFS.ReadFile("data/" + name + ".txt")
	if err != nil {
		panic(fmt.Sprintf("wordlist: missing embedded pool %q: %v", name, err))
	}
	lines, err := ReadLines(strings.NewReader(string(data)))
	if err != nil {
		panic(fmt.Sprintf("wordlist: invalid embedded pool %q: %v", name, err))
	}
	return lines
}

// Pool concatenates the named built-in pools in order. Unknown names are skipped.
func Pool(names ...string) []string {
	var out []string
	for _, name := range names {
		out = append(out, pools[name]...)
	}
	return out
}

// DefaultPool is used when a profile carries no word pool of its own.
func DefaultPool() []string {
	return Pool(PoolCommon, PoolIntermediate, PoolAdvanced)
}

// Sentences returns a copy of the built-in sentence corpus.
func Sentences() []string {
	out := make([]string, len(sentences))
	copy(out, sentences)
	return out
}
