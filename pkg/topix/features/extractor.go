package features

import (
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Vector holds feature values in schema order.
type Vector []float64

// DocStats is the per-document context of feature computation.
type DocStats struct {
	// Words is the document length in tokens.
	Words int
	// InDictionary marks documents already counted in the global
	// dictionary; their own occurrence is left out of IDF.
	InDictionary bool

	// concept -> orders of the candidates bound to it
	byConcept map[string][]int
}

// NewDocStats prepares the document context for its candidates.
func NewDocStats(words int, cands []*ingest.Candidate, inDictionary bool) DocStats {
	ds := DocStats{Words: words, InDictionary: inDictionary, byConcept: make(map[string][]int)}
	for _, c := range cands {
		for _, s := range c.Senses {
			ds.byConcept[s] = append(ds.byConcept[s], c.Order)
		}
	}
	return ds
}

// Extractor computes feature vectors. All fields are optional; features
// whose source is missing are 0.
type Extractor struct {
	Schema        Schema
	Dictionary    *Dictionary
	Keyphraseness *Keyphraseness
	Vocabulary    *vocab.Store
}

// Vector computes the features of c. gold is true during training when c
// is one of the document's gold topics; it only affects leave-one-out
// statistics.
func (e *Extractor) Vector(c *ingest.Candidate, doc DocStats, training, gold bool) Vector {
	words := float64(doc.Words)
	if words < 1 {
		words = 1
	}

	v := make(Vector, len(e.Schema))
	var idf float64
	idfDone := false
	idfValue := func() float64 {
		if !idfDone {
			if e.Dictionary != nil {
				idf = e.Dictionary.IDF(StatsKey(c), training || doc.InDictionary)
			}
			idfDone = true
		}
		return idf
	}
	tf := float64(c.Count) / words

	for i, name := range e.Schema {
		switch name {
		case Length:
			v[i] = float64(c.Length)
		case Count:
			v[i] = float64(c.Count)
		case FirstOccurrence:
			v[i] = float64(c.First) / words
		case LastOccurrence:
			v[i] = float64(c.Last) / words
		case Spread:
			v[i] = float64(c.Spread()) / words
		case TF:
			v[i] = tf
		case IDF:
			v[i] = idfValue()
		case TFIDF:
			v[i] = tf * idfValue()
		case KeyphrasenessFeature:
			if e.Keyphraseness != nil {
				v[i] = e.Keyphraseness.Value(StatsKey(c), training && gold)
			}
		case Generality:
			v[i] = e.meanOverSenses(c, func(id string) float64 {
				return e.Vocabulary.Generality(id)
			})
		case RelatedCount:
			v[i] = e.meanOverSenses(c, func(id string) float64 {
				return float64(len(e.Vocabulary.Related(id)))
			})
		case Ambiguous:
			if c.Ambiguous() {
				v[i] = 1
			}
		case NodeDegree:
			v[i] = float64(e.nodeDegree(c, doc))
		}
	}
	return v
}

func (e *Extractor) meanOverSenses(c *ingest.Candidate, fn func(string) float64) float64 {
	if e.Vocabulary == nil || len(c.Senses) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Senses {
		sum += fn(s)
	}
	return sum / float64(len(c.Senses))
}

// nodeDegree counts the other candidates of the document bound to a
// concept related to one of c's senses.
func (e *Extractor) nodeDegree(c *ingest.Candidate, doc DocStats) int {
	if e.Vocabulary == nil || len(c.Senses) == 0 {
		return 0
	}
	linked := make(map[int]bool)
	for _, s := range c.Senses {
		for _, r := range e.Vocabulary.Related(s) {
			for _, order := range doc.byConcept[r] {
				if order != c.Order {
					linked[order] = true
				}
			}
		}
	}
	return len(linked)
}
