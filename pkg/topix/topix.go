// Package topix assigns controlled-vocabulary topics to documents with a
// model learned from documents whose topics are known.
package topix

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/topix/internal/logger"
	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix/config"
	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/eval"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/model"
	"github.com/cognicore/topix/pkg/topix/pipeline"
	"github.com/cognicore/topix/pkg/topix/store"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Topix is the indexing facade used by the command-line tools.
type Topix struct {
	cfg      config.Config
	comp     *config.Components
	store    store.Store
	trainers *model.Registry
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Options configures a Topix instance
type Options struct {
	Config config.Config
	// Store persists models and caches vocabularies. It may be nil when
	// models are neither saved nor loaded.
	Store store.Store
	// Cache holds parsed vocabularies when vocabulary.serialize is on.
	// Defaults to Store.
	Cache    vocab.SnapshotCache
	Trainers *model.Registry
	// Logger defaults to the logger carried by the context.
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// New resolves the configuration and builds the vocabulary.
func New(ctx context.Context, opts Options) (*Topix, error) {
	if opts.Trainers == nil {
		opts.Trainers = model.DefaultRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}

	loader := &config.Loader{
		Config:   opts.Config,
		Trainers: opts.Trainers,
		Logger:   log,
		Metrics:  opts.Metrics,
	}
	switch {
	case opts.Cache != nil:
		loader.Cache = opts.Cache
	case opts.Store != nil:
		loader.Cache = opts.Store
	}

	start := time.Now()
	comp, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	opts.Metrics.ObserveStage(metrics.StageLoad, start)

	cfg := opts.Config
	cfg.ApplyDefaults()
	return &Topix{
		cfg:      cfg,
		comp:     comp,
		store:    opts.Store,
		trainers: opts.Trainers,
		logger:   log,
		metrics:  opts.Metrics,
	}, nil
}

// Close cleanly shuts down the store
func (t *Topix) Close() error {
	if t.store == nil {
		return nil
	}
	return t.store.Close()
}

// Components exposes the resolved configuration.
func (t *Topix) Components() *config.Components { return t.comp }

// LoadDocuments reads the configured document directory.
func (t *Topix) LoadDocuments(ctx context.Context, requireGold bool) ([]ingest.Document, error) {
	if err := t.cfg.Require("documents.dir"); err != nil {
		return nil, err
	}
	start := time.Now()
	defer t.metrics.ObserveStage(metrics.StageLoad, start)

	docs, err := ingest.LoadDir(ctx, t.cfg.Documents.Dir, ingest.LoadOptions{
		Encoding:    t.cfg.Documents.Encoding,
		RequireGold: requireGold,
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("documents loaded", zap.String("dir", t.cfg.Documents.Dir), zap.Int("count", len(docs)))
	return docs, nil
}

// Train fits a model on docs and saves it under the configured model name
// when a store is set.
func (t *Topix) Train(ctx context.Context, docs []ingest.Document) (*pipeline.Model, error) {
	m, err := t.comp.Pipeline.Train(ctx, docs)
	if err != nil {
		return nil, err
	}
	if t.store != nil {
		if err := pipeline.Save(ctx, t.store, t.cfg.Model.Name, m); err != nil {
			return nil, err
		}
		t.logger.Info("model saved", zap.String("name", t.cfg.Model.Name), zap.String("id", m.ID))
	}
	return m, nil
}

// LoadModel reads the configured model. When no vocabulary is configured
// the model's own vocabulary is used.
func (t *Topix) LoadModel(ctx context.Context) (*pipeline.Model, error) {
	if t.store == nil {
		return nil, fmt.Errorf("%w: no model store", domain.ErrConfiguration)
	}
	m, err := pipeline.Load(ctx, t.store, t.cfg.Model.Name, t.trainers, t.normalizerFor)
	if err != nil {
		return nil, err
	}
	if m.Vocabulary != nil && t.comp.Vocabulary == nil {
		t.comp.Generator.Vocabulary = m.Vocabulary
	}
	for _, key := range []string{"stemmer", "stopwords", "language"} {
		if want, ok := m.Metadata[key]; ok && want != t.cfg.Metadata()[key] {
			t.logger.Warn("setting differs from training",
				zap.String("setting", key),
				zap.String("model", want),
				zap.String("run", t.cfg.Metadata()[key]),
			)
		}
	}
	t.logger.Info("model loaded",
		zap.String("name", t.cfg.Model.Name),
		zap.String("id", m.ID),
		zap.String("scorer", m.Scorer.Kind()),
		zap.String("vocabulary", m.VocabularyName()),
	)
	return m, nil
}

func (t *Topix) normalizerFor(vocabulary string) *vocab.Normalizer {
	if vocabulary == t.cfg.Vocabulary.Name {
		return t.comp.Normalizer
	}
	return vocab.NewNormalizer(t.comp.Stemmer, t.comp.Stopwords, vocab.PolicyFor(vocabulary))
}

// Extract applies m to docs and writes each document's topic file. A
// failed write is logged and counted; the remaining documents are still
// written and the results are returned.
func (t *Topix) Extract(ctx context.Context, m *pipeline.Model, docs []ingest.Document) ([]pipeline.Result, error) {
	results, err := t.comp.Pipeline.Apply(ctx, m, docs)
	if err != nil {
		return nil, err
	}
	t.WriteResults(results)
	return results, nil
}

// WriteResults writes a topic file per result and returns the number of
// failed writes.
func (t *Topix) WriteResults(results []pipeline.Result) int {
	enc, err := ingest.LookupEncoding(t.cfg.Documents.Encoding)
	if err != nil {
		t.logger.Error("no output encoding, nothing written", zap.Error(err))
		return len(results)
	}
	opts := ingest.WriteOptions{WriteScores: t.cfg.Extraction.WriteScores, Encoding: enc}

	failed := 0
	for _, r := range results {
		topics := make([]ingest.Topic, len(r.Topics))
		for i, s := range r.Topics {
			topics[i] = ingest.Topic{Title: s.Title, Score: s.Score}
		}
		path := ingest.OutputPath(r.Document)
		if err := ingest.WriteTopics(path, topics, opts); err != nil {
			t.logger.Error("writing topics failed, continuing", zap.String("path", path), zap.Error(err))
			t.metrics.WriteFailed()
			failed++
			continue
		}
		t.logger.Debug("topics written", zap.String("path", path), zap.Int("topics", len(topics)))
	}
	return failed
}

// Evaluate returns the macro-averaged metrics of the results with gold
// topics, and how many such results there were.
func (t *Topix) Evaluate(results []pipeline.Result) (eval.Metrics, int) {
	ms := pipeline.Evaluate(results)
	return eval.Macro(ms), len(ms)
}

// CrossValidate runs k-fold cross-validation with the configured number of
// folds.
func (t *Topix) CrossValidate(ctx context.Context, docs []ingest.Document) (eval.Report, error) {
	return t.comp.Pipeline.CrossValidate(ctx, docs, t.cfg.CrossValidation.Folds)
}
