// Package vocab indexes a controlled vocabulary (thesaurus) and maps raw
// phrases onto its concepts.
package vocab

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cognicore/topix/pkg/topix/stem"
	"github.com/cognicore/topix/pkg/topix/stoplist"
)

// Policy holds the vocabulary-specific quirks of phrase normalization.
// The zero value applies none of them.
type Policy struct {
	// LiteralSuffixes lists endings that mark a phrase as already final.
	// Such phrases are returned unchanged.
	LiteralSuffixes []string
	// TruncateAt cuts the phrase at the first occurrence of this rune.
	// Zero disables truncation.
	TruncateAt rune
	// SkipParenthesizedAliases drops alias labels containing "(".
	SkipParenthesizedAliases bool
	// NoStopwords disables stopword filtering for this vocabulary.
	NoStopwords bool
}

// DefaultPolicy is applied to vocabularies without a dedicated policy.
var DefaultPolicy = Policy{LiteralSuffixes: []string{"-", "."}}

// PolicyFor returns the normalization policy for a vocabulary name.
//
// Known names:
//   - mesh: qualifiers after "/" are ignored (Monocytes/immunology -> monocytes)
//   - lcsh: parenthesized aliases are skipped, stopwords are kept
func PolicyFor(name string) Policy {
	p := DefaultPolicy
	switch strings.ToLower(name) {
	case "mesh":
		p.TruncateAt = '/'
	case "lcsh":
		p.SkipParenthesizedAliases = true
		p.NoStopwords = true
	}
	return p
}

// Normalizer turns a raw phrase into a canonical lookup key
// (the "pseudo-phrase"): stopwords removed, tokens stemmed and sorted.
type Normalizer struct {
	Stemmer   stem.Stemmer
	Stopwords *stoplist.Set
	Policy    Policy
	// Lowercase enables case folding (abbreviations are left alone).
	Lowercase bool
	// Reorder sorts the pseudo-phrase tokens.
	Reorder bool
}

// NewNormalizer creates a normalizer with case folding and reordering on.
// A nil stemmer or stopword set disables that step.
func NewNormalizer(stemmer stem.Stemmer, stops *stoplist.Set, policy Policy) *Normalizer {
	if policy.NoStopwords {
		stops = nil
	}
	return &Normalizer{
		Stemmer:   stemmer,
		Stopwords: stops,
		Policy:    policy,
		Lowercase: true,
		Reorder:   true,
	}
}

// Normalize returns the canonical key for phrase.
//
// Examples (English stopwords, s-removal stemmer):
//   - "Economic development" -> "development economic"
//   - "Board of Directors"   -> "board director"
//   - "Monocytes/immunology" -> "monocyte" (mesh)
//   - "The"                  -> "the" (stopword-only phrases fall back)
func (n *Normalizer) Normalize(phrase string) string {
	for _, suffix := range n.Policy.LiteralSuffixes {
		if suffix != "" && strings.HasSuffix(phrase, suffix) {
			return phrase
		}
	}

	var b strings.Builder
	prev := ' '
	for _, c := range phrase {
		if n.Policy.TruncateAt != 0 && c == n.Policy.TruncateAt {
			break
		}
		switch {
		case c == '&' || c == '.' || unicode.IsSpace(c):
			c = ' '
		case c == '*' || c == ':':
			continue
		}
		if c != ' ' || prev != ' ' {
			b.WriteRune(c)
		}
		prev = c
	}
	trimmed := strings.TrimSpace(b.String())

	if n.Lowercase && okToLower(trimmed) {
		trimmed = strings.ToLower(trimmed)
	}

	if !n.Reorder && n.Stopwords == nil && n.Stemmer == nil {
		return trimmed
	}
	if key := n.pseudoPhrase(trimmed); key != "" {
		return key
	}
	return trimmed
}

func (n *Normalizer) pseudoPhrase(s string) string {
	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if n.Stopwords.IsStop(w) {
			continue
		}
		if i := strings.LastIndexByte(w, '\''); i != -1 && i == len(w)-2 {
			w = w[:i]
		}
		w = n.stem(w)
		// A stem can itself be a stopword ("others" -> "other").
		if w != "" && !n.Stopwords.IsStop(w) {
			out = append(out, w)
		}
	}
	if n.Reorder {
		sort.Strings(out)
	}
	return strings.Join(out, " ")
}

// maxStemRounds bounds the fixed-point iteration of stem.
const maxStemRounds = 8

// stem applies the stemmer until the word stops changing, so that keys
// survive being normalized again.
func (n *Normalizer) stem(w string) string {
	if n.Stemmer == nil {
		return w
	}
	for i := 0; i < maxStemRounds; i++ {
		s := n.Stemmer.Stem(w)
		if s == w {
			break
		}
		w = s
	}
	return w
}

// okToLower reports false for short all-caps tokens that look like
// abbreviations: more upper- than lower-case letters and fewer than 5
// upper-case letters.
func okToLower(s string) bool {
	var lower, upper int
	for _, c := range s {
		switch {
		case unicode.IsLower(c):
			lower++
		case unicode.IsUpper(c):
			upper++
		}
	}
	return !(upper > lower && upper < 5)
}
