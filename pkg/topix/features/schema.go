// Package features computes the fixed-order numeric description of each
// candidate phrase.
package features

import (
	"fmt"
	"strings"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Feature names, grouped by family.
const (
	Length          = "length"
	Count           = "count"
	FirstOccurrence = "first_occurrence"
	LastOccurrence  = "last_occurrence"
	Spread          = "spread"

	TF    = "tf"
	IDF   = "idf"
	TFIDF = "tfidf"

	KeyphrasenessFeature = "keyphraseness"

	Generality   = "generality"
	RelatedCount = "related_count"
	Ambiguous    = "ambiguous"
	NodeDegree   = "node_degree"
)

// Families selects the feature families to compute.
type Families struct {
	Basic         bool `yaml:"basic" json:"basic"`
	Frequency     bool `yaml:"frequency" json:"frequency"`
	Keyphraseness bool `yaml:"keyphraseness" json:"keyphraseness"`
	Thesaurus     bool `yaml:"thesaurus" json:"thesaurus"`
}

// AllFamilies enables every family.
func AllFamilies() Families {
	return Families{Basic: true, Frequency: true, Keyphraseness: true, Thesaurus: true}
}

// Schema is the ordered list of feature names of a pipeline.
type Schema []string

// NewSchema derives the schema for the enabled families.
func NewSchema(f Families) Schema {
	var s Schema
	if f.Basic {
		s = append(s, Length, Count, FirstOccurrence, LastOccurrence, Spread)
	}
	if f.Frequency {
		s = append(s, TF, IDF, TFIDF)
	}
	if f.Keyphraseness {
		s = append(s, KeyphrasenessFeature)
	}
	if f.Thesaurus {
		s = append(s, Generality, RelatedCount, Ambiguous, NodeDegree)
	}
	return s
}

// Has reports whether name is part of the schema.
func (s Schema) Has(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

// Check returns a configuration error unless other has the same names in
// the same order.
func (s Schema) Check(other Schema) error {
	if len(s) == len(other) {
		same := true
		for i := range s {
			if s[i] != other[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return fmt.Errorf("%w: feature schema mismatch: model has [%s], run has [%s]",
		domain.ErrConfiguration, strings.Join(s, ","), strings.Join(other, ","))
}
