// Package completions supplies the static keyword and function
// completions for the Athena SQL dialect. The catalog tree provides the
// object names; this list covers the language itself.
package completions

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed keywords.txt
var keywordData string

//go:embed functions.txt
var functionData string

// Completion is one completion entry. Kind is "kw" for keywords and
// "fn" for functions.
type Completion struct {
	Label string
	Kind  string
}

var (
	loadOnce sync.Once
	loaded   []Completion
)

// Load returns the completion list. The embedded data is parsed once.
func Load() []Completion {
	loadOnce.Do(func() {
		for _, kw := range splitWords(keywordData) {
			loaded = append(loaded, Completion{Label: kw, Kind: "kw"})
		}
		for _, fn := range splitWords(functionData) {
			loaded = append(loaded, Completion{Label: fn, Kind: "fn"})
		}
	})
	return loaded
}

func splitWords(data string) []string {
	var words []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}
