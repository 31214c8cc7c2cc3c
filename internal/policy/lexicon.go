package policy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"clipmorph/internal/services"
)

var foldCaser = cases.Fold()

// Normalize reduces a word to the canonical form used for lexicon matching:
// NFKC normalization, full case folding, and leading/trailing punctuation or
// symbol runes stripped. Interior punctuation (contractions, leetspeak masks)
// is preserved.
func Normalize(word string) string {
	normalized := norm.NFKC.String(word)
	normalized = foldCaser.String(normalized)
	return strings.TrimFunc(normalized, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// Lexicon is the read-only profanity set shared by all jobs in a process.
// It is loaded once and never mutated afterwards.
type Lexicon struct {
	words map[string]struct{}
}

// NewLexicon builds a lexicon from the provided words. Entries are normalized
// the same way matched words are, so callers may pass raw forms.
func NewLexicon(words []string) *Lexicon {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		normalized := Normalize(w)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return &Lexicon{words: set}
}

// LoadLexicon reads a lexicon file (one word per line, '#' comments) and
// merges any extra words from configuration. An empty path yields the
// built-in default list.
func LoadLexicon(path string, extra []string) (*Lexicon, error) {
	words := make([]string, 0, len(defaultLexiconWords)+len(extra))
	if path == "" {
		words = append(words, defaultLexiconWords...)
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "policy", "load lexicon",
				fmt.Sprintf("open %s", path), err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "policy", "load lexicon",
				fmt.Sprintf("read %s", path), err)
		}
	}
	words = append(words, extra...)
	return NewLexicon(words), nil
}

// Contains reports whether the raw word matches a lexicon entry after
// normalization.
func (l *Lexicon) Contains(word string) bool {
	if l == nil || len(l.words) == 0 {
		return false
	}
	normalized := Normalize(word)
	if normalized == "" {
		return false
	}
	_, ok := l.words[normalized]
	return ok
}

// Size returns the number of distinct normalized entries.
func (l *Lexicon) Size() int {
	if l == nil {
		return 0
	}
	return len(l.words)
}

// defaultLexiconWords is the built-in censor list applied when no lexicon
// file is configured. Platform short-form guidelines are stricter than most
// lists, so the defaults lean conservative.
var defaultLexiconWords = []string{
	"fuck", "fucking", "fucked", "fucker", "motherfucker",
	"shit", "shitty", "bullshit",
	"bitch", "bitches",
	"asshole", "ass",
	"bastard",
	"cunt",
	"dick", "dickhead",
	"cock",
	"pussy",
	"slut", "whore",
	"nigga", "nigger",
	"faggot", "fag",
	"retard", "retarded",
	"damn", "goddamn",
}
