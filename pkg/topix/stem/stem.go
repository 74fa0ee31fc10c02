// Package stem maps word tokens to their root forms.
//
// Stemmers are selected by name through a Registry so that configuration
// can resolve them without reflection:
//
//	reg := stem.DefaultRegistry()
//	s, err := reg.New("porter")
//	s.Stem("economies") // "economi"
package stem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kljensen/snowball"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Stemmer maps a token to its root form.
type Stemmer interface {
	Stem(word string) string
}

// Func adapts a plain function to the Stemmer interface.
type Func func(word string) string

// Stem implements Stemmer.
func (f Func) Stem(word string) string { return f(word) }

// Constructor builds a fresh Stemmer.
type Constructor func() Stemmer

// Registry maps selector strings to stemmer constructors.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry holding every built-in stemmer.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("none", func() Stemmer { return None{} })
	r.Register("sremoval", func() Stemmer { return SRemoval{} })
	for _, lang := range snowballLanguages {
		lang := lang
		r.Register(lang, func() Stemmer { return NewSnowball(lang) })
	}
	r.Register("porter", func() Stemmer { return NewSnowball("english") })
	return r
}

// Register adds or replaces a constructor under name (case-insensitive).
func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[strings.ToLower(name)] = ctor
}

// New resolves a stemmer by name. An unknown name is a configuration error.
func (r *Registry) New(name string) (Stemmer, error) {
	ctor, ok := r.ctors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown stemmer %q (known: %s): %w",
			name, strings.Join(r.Names(), ", "), domain.ErrConfiguration)
	}
	return ctor(), nil
}

// Names lists the registered selectors in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// None returns words unchanged.
type None struct{}

// Stem implements Stemmer.
func (None) Stem(word string) string { return word }

// SRemoval strips English plural endings only.
type SRemoval struct{}

// Stem implements Stemmer.
func (SRemoval) Stem(word string) string {
	w := strings.ToLower(word)
	switch {
	case strings.HasSuffix(w, "ies") && !strings.HasSuffix(w, "eies") && !strings.HasSuffix(w, "aies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "es") && !strings.HasSuffix(w, "aes") &&
		!strings.HasSuffix(w, "ees") && !strings.HasSuffix(w, "oes"):
		return w[:len(w)-1]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

var snowballLanguages = []string{
	"english", "french", "spanish", "russian", "swedish", "norwegian", "hungarian",
}

// Snowball wraps the snowball stemmers for a single language.
type Snowball struct {
	lang string
}

// NewSnowball creates a snowball stemmer for lang (e.g. "english").
func NewSnowball(lang string) Snowball {
	return Snowball{lang: lang}
}

// Stem implements Stemmer. Words the stemmer rejects are returned lower-cased.
func (s Snowball) Stem(word string) string {
	stemmed, err := snowball.Stem(word, s.lang, true)
	if err != nil {
		return strings.ToLower(word)
	}
	return stemmed
}
