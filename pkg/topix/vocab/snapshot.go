package vocab

import (
	"context"
)

// Snapshot is the serializable form of a Store. Reloading it with
// FromSnapshot yields a store that answers every query identically.
type Snapshot struct {
	Name           string              `json:"name"`
	Senses         map[string][]string `json:"senses"`
	Terms          map[string]string   `json:"terms"`
	NonDescriptors map[string]string   `json:"non_descriptors"`
	Related        map[string][]string `json:"related"`
	Broader        map[string][]string `json:"broader"`
	Narrower       map[string][]string `json:"narrower"`
}

// SnapshotCache persists vocabulary snapshots between runs.
// LoadVocabulary returns an error wrapping domain.ErrResourceNotFound
// when nothing is cached under key.
type SnapshotCache interface {
	LoadVocabulary(ctx context.Context, key string) (*Snapshot, error)
	SaveVocabulary(ctx context.Context, key string, snap *Snapshot) error
}

// Snapshot copies the store's indexes.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{
		Name:           s.name,
		Senses:         copyLists(s.senses),
		Terms:          copyMap(s.terms),
		NonDescriptors: copyMap(s.nonDescriptors),
		Related:        copyLists(s.related),
		Broader:        copyLists(s.broader),
		Narrower:       copyLists(s.narrower),
	}
}

// FromSnapshot rebuilds a store. norm must match the normalizer the
// snapshot was built with for Normalize to produce the indexed keys.
func FromSnapshot(snap *Snapshot, norm *Normalizer) *Store {
	s := newStore(snap.Name, norm)
	s.senses = copyLists(snap.Senses)
	s.terms = copyMap(snap.Terms)
	s.nonDescriptors = copyMap(snap.NonDescriptors)
	s.related = copyLists(snap.Related)
	s.broader = copyLists(snap.Broader)
	s.narrower = copyLists(snap.Narrower)
	s.finish()
	return s
}

func copyLists(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
