package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/model"
	"github.com/cognicore/topix/pkg/topix/store"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Model is a trained pipeline: the scorer plus everything feature
// extraction needs to reproduce the training vectors.
type Model struct {
	ID      string
	Created time.Time
	Schema  features.Schema
	Scorer  model.Model

	Dictionary    *features.Dictionary
	Keyphraseness *features.Keyphraseness
	// Vocabulary is nil for models trained without a controlled
	// vocabulary.
	Vocabulary *vocab.Store
	Metadata   map[string]string
}

// VocabularyName returns the name of the model's vocabulary, or "".
func (m *Model) VocabularyName() string {
	if m.Vocabulary == nil {
		return ""
	}
	return m.Vocabulary.Name()
}

// Artifact converts the model to its persisted form.
func (m *Model) Artifact() (store.Artifact, error) {
	state, err := model.Encode(m.Scorer)
	if err != nil {
		return store.Artifact{}, err
	}
	a := store.Artifact{
		ID:         m.ID,
		Created:    m.Created,
		Scorer:     m.Scorer.Kind(),
		State:      state,
		Schema:     append([]string(nil), m.Schema...),
		Vocabulary: m.VocabularyName(),
		Options:    make(map[string]string, len(m.Metadata)),
	}
	if m.Dictionary != nil {
		a.Docs = m.Dictionary.Docs()
		a.DF = m.Dictionary.Entries()
	}
	if m.Keyphraseness != nil {
		a.Keyphraseness = m.Keyphraseness.Entries()
	}
	for k, v := range m.Metadata {
		a.Options[k] = v
	}
	return a, nil
}

// FromArtifact restores a model. vocabulary must be the store the model
// was trained with, or nil when a.Vocabulary is empty.
func FromArtifact(a store.Artifact, scorers *model.Registry, vocabulary *vocab.Store) (*Model, error) {
	if scorers == nil {
		scorers = model.DefaultRegistry()
	}
	scorer, err := scorers.Decode(a.Scorer, a.State)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", a.ID, err)
	}
	if a.Vocabulary != "" && vocabulary == nil {
		return nil, fmt.Errorf("%w: model %s needs vocabulary %q", domain.ErrConfiguration, a.ID, a.Vocabulary)
	}
	m := &Model{
		ID:            a.ID,
		Created:       a.Created,
		Schema:        features.Schema(append([]string(nil), a.Schema...)),
		Scorer:        scorer,
		Dictionary:    features.DictionaryFrom(a.Docs, a.DF),
		Keyphraseness: features.KeyphrasenessFrom(a.Keyphraseness),
		Metadata:      make(map[string]string, len(a.Options)),
	}
	if a.Vocabulary != "" {
		m.Vocabulary = vocabulary
	}
	for k, v := range a.Options {
		m.Metadata[k] = v
	}
	return m, nil
}

// Save writes the model under name, together with a snapshot of its
// vocabulary keyed by the vocabulary name.
func Save(ctx context.Context, st store.Store, name string, m *Model) error {
	a, err := m.Artifact()
	if err != nil {
		return err
	}
	if m.Vocabulary != nil {
		if err := st.SaveVocabulary(ctx, m.Vocabulary.Name(), m.Vocabulary.Snapshot()); err != nil {
			return fmt.Errorf("save vocabulary %q: %w", m.Vocabulary.Name(), err)
		}
	}
	if err := st.SaveModel(ctx, name, a); err != nil {
		return fmt.Errorf("save model %q: %w", name, err)
	}
	return nil
}

// NormalizerFunc returns the normalizer for a vocabulary name.
type NormalizerFunc func(vocabulary string) *vocab.Normalizer

// Load reads the model saved under name. The vocabulary snapshot is
// restored with the normalizer from normFor, which must match the one
// used in training.
func Load(ctx context.Context, st store.Store, name string, scorers *model.Registry, normFor NormalizerFunc) (*Model, error) {
	a, err := st.LoadModel(ctx, name)
	if err != nil {
		return nil, err
	}
	var vs *vocab.Store
	if a.Vocabulary != "" {
		snap, err := st.LoadVocabulary(ctx, a.Vocabulary)
		if err != nil {
			return nil, fmt.Errorf("vocabulary of model %q: %w", name, err)
		}
		var norm *vocab.Normalizer
		if normFor != nil {
			norm = normFor(a.Vocabulary)
		}
		vs = vocab.FromSnapshot(snap, norm)
	}
	return FromArtifact(a, scorers, vs)
}
