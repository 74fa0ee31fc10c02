// Package stoplist holds per-language function-word sets.
package stoplist

import (
	"bufio"
	"embed"
	"sort"
	"strings"
)

//go:embed lists/*.txt
var builtinLists embed.FS

// Set is a case-insensitive stopword membership test.
type Set struct {
	stops map[string]struct{}
}

// New creates a set from the given words.
func New(words []string) *Set {
	s := &Set{stops: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// IsStop reports whether word is a stopword.
func (s *Set) IsStop(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.stops[strings.ToLower(word)]
	return ok
}

// Add adds a word to the set.
func (s *Set) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	s.stops[word] = struct{}{}
}

// Remove removes a word from the set.
func (s *Set) Remove(word string) {
	delete(s.stops, strings.ToLower(word))
}

// All returns every stopword in lexical order.
func (s *Set) All() []string {
	result := make([]string, 0, len(s.stops))
	for w := range s.stops {
		result = append(result, w)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of stopwords.
func (s *Set) Len() int { return len(s.stops) }

// Registry maps a language selector to its stopword set.
type Registry struct {
	sets     map[string]*Set
	fallback string
}

// NewRegistry creates an empty registry whose lookups fall back to the
// set registered under fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{sets: make(map[string]*Set), fallback: strings.ToLower(fallback)}
}

// DefaultRegistry returns a registry with the embedded lists for English,
// French, Spanish, German and Portuguese, keyed by ISO code and by name.
// Unknown languages resolve to English.
func DefaultRegistry() *Registry {
	r := NewRegistry("en")
	aliases := map[string][]string{
		"en": {"english"},
		"fr": {"french"},
		"es": {"spanish"},
		"de": {"german"},
		"pt": {"portuguese", "galician", "gl"},
	}
	for code, names := range aliases {
		set := New(readList(code))
		r.Register(code, set)
		for _, name := range names {
			r.Register(name, set)
		}
	}
	return r
}

// Register adds or replaces the set for a language.
func (r *Registry) Register(lang string, set *Set) {
	r.sets[strings.ToLower(lang)] = set
}

// Lookup returns the set for lang and whether it was found directly.
// When not found the fallback set is returned with ok == false.
func (r *Registry) Lookup(lang string) (set *Set, ok bool) {
	if s, found := r.sets[strings.ToLower(strings.TrimSpace(lang))]; found {
		return s, true
	}
	return r.sets[r.fallback], false
}

func readList(code string) []string {
	f, err := builtinLists.Open("lists/" + code + ".txt")
	if err != nil {
		return nil
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}
