package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/store"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.RWMutex
	models map[string]store.Artifact
	vocabs map[string]*vocab.Snapshot
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		models: make(map[string]store.Artifact),
		vocabs: make(map[string]*vocab.Snapshot),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveModel stores a copy of a under name.
func (s *Store) SaveModel(ctx context.Context, name string, a store.Artifact) error {
	if name == "" {
		name = store.DefaultModel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[name] = copyArtifact(a)
	return nil
}

// LoadModel returns a copy of the artifact saved under name.
func (s *Store) LoadModel(ctx context.Context, name string) (store.Artifact, error) {
	if name == "" {
		name = store.DefaultModel
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.models[name]
	if !ok {
		return store.Artifact{}, fmt.Errorf("%w: model %q", domain.ErrResourceNotFound, name)
	}
	return copyArtifact(a), nil
}

// Models lists the saved artifact names in lexical order.
func (s *Store) Models(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.models))
	for n := range s.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// SaveVocabulary stores snap under key.
func (s *Store) SaveVocabulary(ctx context.Context, key string, snap *vocab.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocabs[key] = copySnapshot(snap)
	return nil
}

// LoadVocabulary returns the snapshot saved under key.
func (s *Store) LoadVocabulary(ctx context.Context, key string) (*vocab.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.vocabs[key]
	if !ok {
		return nil, fmt.Errorf("%w: vocabulary snapshot %q", domain.ErrResourceNotFound, key)
	}
	return copySnapshot(snap), nil
}

func copyArtifact(a store.Artifact) store.Artifact {
	out := a
	out.State = append([]byte(nil), a.State...)
	out.Schema = append([]string(nil), a.Schema...)
	out.DF = copyCounts(a.DF)
	out.Keyphraseness = copyCounts(a.Keyphraseness)
	out.Options = make(map[string]string, len(a.Options))
	for k, v := range a.Options {
		out.Options[k] = v
	}
	return out
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySnapshot(snap *vocab.Snapshot) *vocab.Snapshot {
	// FromSnapshot and Snapshot both deep-copy the indexes.
	return vocab.FromSnapshot(snap, nil).Snapshot()
}
