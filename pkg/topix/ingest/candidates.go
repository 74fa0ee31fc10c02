package ingest

import (
	"strings"

	"github.com/cognicore/topix/pkg/topix/stoplist"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Phrase length defaults.
const (
	DefaultMaxPhraseLength = 5
	DefaultMinPhraseLength = 1
)

// Normalizer maps a surface phrase to its canonical key.
type Normalizer interface {
	Normalize(phrase string) string
}

// Candidate is a distinct phrase of one document. Spans whose keys are
// equal are merged into a single candidate.
type Candidate struct {
	// Key is the normalized form of the first occurrence.
	Key string
	// Keys lists every normalized form merged into this candidate. It has
	// more than one entry only when several keys bind to the same concept.
	Keys []string
	// Title is the display form: the label of the bound concept, or the
	// most frequent spelling.
	Title string
	// Spellings are the distinct surface forms in order of first sight.
	Spellings []string
	Count     int
	// First and Last are word offsets of the first and last occurrence.
	First int
	Last  int
	// Length is the number of words of the first occurrence.
	Length int
	// Senses are the vocabulary concepts the key may refer to.
	Senses []string
	// Order is the rank of the first occurrence among all candidates.
	Order int

	spellingCounts map[string]int
}

// Spread is the distance between the first and last occurrence.
func (c *Candidate) Spread() int { return c.Last - c.First }

// Ambiguous reports whether the candidate matches more than one concept.
func (c *Candidate) Ambiguous() bool { return len(c.Senses) > 1 }

// Concept returns the bound concept id when the match is unambiguous.
func (c *Candidate) Concept() (string, bool) {
	if len(c.Senses) == 1 {
		return c.Senses[0], true
	}
	return "", false
}

// Generator emits candidate phrases from a token stream.
type Generator struct {
	Stopwords *stoplist.Set
	// Normalizer computes keys when no vocabulary is set. Nil keys on the
	// lower-cased surface form.
	Normalizer Normalizer
	// Vocabulary restricts candidates to phrases matching a concept.
	Vocabulary *vocab.Store
	// AllowUnbound keeps candidates without a concept in vocabulary mode.
	AllowUnbound    bool
	MaxPhraseLength int
	MinPhraseLength int
	// MinOccurrence drops candidates seen fewer times.
	MinOccurrence int
}

// NewGenerator creates a generator with the default phrase lengths.
func NewGenerator(stops *stoplist.Set) *Generator {
	return &Generator{
		Stopwords:       stops,
		MaxPhraseLength: DefaultMaxPhraseLength,
		MinPhraseLength: DefaultMinPhraseLength,
		MinOccurrence:   1,
	}
}

// Key returns the normalized key for a surface phrase.
func (g *Generator) Key(phrase string) string {
	switch {
	case g.Vocabulary != nil:
		return g.Vocabulary.Normalize(phrase)
	case g.Normalizer != nil:
		return g.Normalizer.Normalize(phrase)
	}
	return strings.ToLower(phrase)
}

// Generate returns the candidates of a token stream in order of first
// occurrence.
//
// Every span of MinPhraseLength..MaxPhraseLength tokens inside one
// segment is considered, unless its first or last token is a stopword:
//
//	"board of directors" -> board, board of directors, directors
func (g *Generator) Generate(tokens []Token) []*Candidate {
	maxLen := g.MaxPhraseLength
	if maxLen <= 0 {
		maxLen = DefaultMaxPhraseLength
	}
	minLen := g.MinPhraseLength
	if minLen <= 0 {
		minLen = DefaultMinPhraseLength
	}

	byKey := make(map[string]*Candidate)
	var ordered []*Candidate
	words := make([]string, 0, maxLen)

	for i := range tokens {
		if g.Stopwords.IsStop(tokens[i].Text) {
			continue
		}
		words = words[:0]
		for n := 1; n <= maxLen; n++ {
			j := i + n - 1
			if j >= len(tokens) || tokens[j].Segment != tokens[i].Segment {
				break
			}
			words = append(words, tokens[j].Text)
			if n < minLen || g.Stopwords.IsStop(tokens[j].Text) {
				continue
			}

			surface := strings.Join(words, " ")
			key := g.Key(surface)
			if key == "" {
				continue
			}

			c, ok := byKey[key]
			if !ok {
				c = &Candidate{
					Key:            key,
					Keys:           []string{key},
					First:          tokens[i].Pos,
					Length:         n,
					spellingCounts: make(map[string]int),
				}
				byKey[key] = c
				ordered = append(ordered, c)
			}
			c.observe(surface, tokens[i].Pos)
		}
	}

	if g.Vocabulary != nil {
		ordered = g.bind(ordered)
	}

	result := ordered[:0]
	for _, c := range ordered {
		if c.Count < g.MinOccurrence {
			continue
		}
		c.Title = g.title(c)
		c.Order = len(result)
		result = append(result, c)
	}
	return result
}

func (c *Candidate) observe(surface string, pos int) {
	c.Count++
	if pos < c.First {
		c.First = pos
	}
	if pos > c.Last {
		c.Last = pos
	}
	if c.spellingCounts[surface] == 0 {
		c.Spellings = append(c.Spellings, surface)
	}
	c.spellingCounts[surface]++
}

// bind attaches senses, drops unbound candidates unless allowed, and
// merges candidates whose keys resolve to the same single concept.
func (g *Generator) bind(cands []*Candidate) []*Candidate {
	byConcept := make(map[string]*Candidate)
	var result []*Candidate
	for _, c := range cands {
		c.Senses = g.Vocabulary.Senses(c.Key)
		if len(c.Senses) == 0 && !g.AllowUnbound {
			continue
		}
		id, ok := c.Concept()
		if !ok {
			result = append(result, c)
			continue
		}
		if target, seen := byConcept[id]; seen {
			target.merge(c)
			continue
		}
		byConcept[id] = c
		result = append(result, c)
	}
	return result
}

func (c *Candidate) merge(other *Candidate) {
	c.Keys = append(c.Keys, other.Keys...)
	c.Count += other.Count
	if other.First < c.First {
		c.First = other.First
	}
	if other.Last > c.Last {
		c.Last = other.Last
	}
	for _, s := range other.Spellings {
		if c.spellingCounts[s] == 0 {
			c.Spellings = append(c.Spellings, s)
		}
		c.spellingCounts[s] += other.spellingCounts[s]
	}
}

func (g *Generator) title(c *Candidate) string {
	if id, ok := c.Concept(); ok && g.Vocabulary != nil {
		if label, ok := g.Vocabulary.Term(id); ok {
			return label
		}
	}
	best := ""
	for _, s := range c.Spellings {
		if best == "" || c.spellingCounts[s] > c.spellingCounts[best] {
			best = s
		}
	}
	return best
}
