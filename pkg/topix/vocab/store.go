package vocab

import (
	"sort"
)

// Relation names a thesaurus predicate by its SKOS local name.
type Relation string

// Relations understood by the builder. Anything else is ignored.
const (
	RelPrefLabel     Relation = "prefLabel"
	RelAltLabel      Relation = "altLabel"
	RelHiddenLabel   Relation = "hiddenLabel"
	RelBroader       Relation = "broader"
	RelNarrower      Relation = "narrower"
	RelComposite     Relation = "composite"
	RelCompositeOf   Relation = "compositeOf"
	RelHasTopConcept Relation = "hasTopConcept"
	RelRelated       Relation = "related"
)

func (r Relation) isLabel() bool {
	return r == RelPrefLabel || r == RelAltLabel || r == RelHiddenLabel
}

func (r Relation) isEdge() bool {
	switch r {
	case RelBroader, RelNarrower, RelComposite, RelCompositeOf, RelHasTopConcept, RelRelated:
		return true
	}
	return false
}

// Concept is a thesaurus entry.
type Concept struct {
	ID       string
	Label    string
	Aliases  []string
	Related  []string
	Broader  []string
	Narrower []string
}

// Stats summarizes a built store.
type Stats struct {
	Keys           int
	Descriptors    int
	NonDescriptors int
	WithRelated    int
}

// Store is a read-only vocabulary index. It is safe for concurrent use.
//
// Two core indexes:
//   - normalized key -> senses (concept ids)
//   - concept id -> label and relations
//
// Alias labels are indexed under synthesized non-descriptor ids which
// Senses resolves to their descriptor.
type Store struct {
	name       string
	normalizer *Normalizer

	senses         map[string][]string
	terms          map[string]string
	nonDescriptors map[string]string
	related        map[string][]string
	broader        map[string][]string
	narrower       map[string][]string

	// derived in finish()
	aliases map[string][]string
}

func newStore(name string, norm *Normalizer) *Store {
	return &Store{
		name:           name,
		normalizer:     norm,
		senses:         make(map[string][]string),
		terms:          make(map[string]string),
		nonDescriptors: make(map[string]string),
		related:        make(map[string][]string),
		broader:        make(map[string][]string),
		narrower:       make(map[string][]string),
	}
}

// Name returns the vocabulary name.
func (s *Store) Name() string { return s.name }

// Normalizer returns the normalizer the store was built with.
func (s *Store) Normalizer() *Normalizer { return s.normalizer }

// Normalize converts a raw phrase to the key form used by Senses.
func (s *Store) Normalize(phrase string) string {
	if s.normalizer == nil {
		return phrase
	}
	return s.normalizer.Normalize(phrase)
}

// Senses returns the concept ids a normalized key may refer to, sorted.
// Non-descriptor ids are replaced by their descriptor.
func (s *Store) Senses(key string) []string {
	raw := s.senses[key]
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	result := make([]string, 0, len(raw))
	for _, id := range raw {
		id = s.descriptorOf(id)
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}

// SensesFor normalizes phrase and returns its senses.
func (s *Store) SensesFor(phrase string) []string {
	return s.Senses(s.Normalize(phrase))
}

// IsAmbiguous reports whether key has more than one sense.
func (s *Store) IsAmbiguous(key string) bool {
	return len(s.Senses(key)) > 1
}

// Contains reports whether key has at least one sense.
func (s *Store) Contains(key string) bool {
	return len(s.senses[key]) > 0
}

// Term returns the label stored for id.
func (s *Store) Term(id string) (string, bool) {
	t, ok := s.terms[id]
	return t, ok
}

// Related returns the ids directly linked to id by any relation.
func (s *Store) Related(id string) []string { return s.related[id] }

// Broader returns the broader concepts of id.
func (s *Store) Broader(id string) []string { return s.broader[id] }

// Narrower returns the narrower concepts of id.
func (s *Store) Narrower(id string) []string { return s.narrower[id] }

// Concept assembles the full entry for a descriptor id.
func (s *Store) Concept(id string) (Concept, bool) {
	label, ok := s.terms[id]
	if !ok {
		return Concept{}, false
	}
	return Concept{
		ID:       id,
		Label:    label,
		Aliases:  s.aliases[id],
		Related:  s.related[id],
		Broader:  s.broader[id],
		Narrower: s.narrower[id],
	}, true
}

// Depth returns the number of broader hops from id to the nearest concept
// without a broader concept. Concepts outside any hierarchy have depth 0.
func (s *Store) Depth(id string) int {
	depth := 0
	visited := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, c := range frontier {
			parents := s.broader[c]
			if len(parents) == 0 {
				return depth
			}
			for _, p := range parents {
				if !visited[p] {
					visited[p] = true
					next = append(next, p)
				}
			}
		}
		if len(next) == 0 {
			// Cycle without a root.
			return depth
		}
		frontier = next
		depth++
	}
	return depth
}

// Generality maps Depth into (0,1]: top concepts score 1.
func (s *Store) Generality(id string) float64 {
	return 1 / float64(1+s.Depth(id))
}

// Stats reports the size of the indexes.
func (s *Store) Stats() Stats {
	return Stats{
		Keys:           len(s.senses),
		Descriptors:    len(s.terms) - len(s.nonDescriptors),
		NonDescriptors: len(s.nonDescriptors),
		WithRelated:    len(s.related),
	}
}

func (s *Store) descriptorOf(id string) string {
	if d, ok := s.nonDescriptors[id]; ok {
		return d
	}
	return id
}

// finish derives the secondary indexes once the primary ones are complete.
func (s *Store) finish() {
	s.aliases = make(map[string][]string)
	ids := make([]string, 0, len(s.nonDescriptors))
	for nd := range s.nonDescriptors {
		ids = append(ids, nd)
	}
	sort.Strings(ids)
	for _, nd := range ids {
		d := s.nonDescriptors[nd]
		if label, ok := s.terms[nd]; ok {
			s.aliases[d] = append(s.aliases[d], label)
		}
	}
}

// appendUnique adds v to m[k] unless already present.
func appendUnique(m map[string][]string, k, v string) {
	for _, existing := range m[k] {
		if existing == v {
			return
		}
	}
	m[k] = append(m[k], v)
}
