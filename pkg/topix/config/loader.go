package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/topix/internal/logger"
	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/model"
	"github.com/cognicore/topix/pkg/topix/pipeline"
	"github.com/cognicore/topix/pkg/topix/stem"
	"github.com/cognicore/topix/pkg/topix/stoplist"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Loader resolves a Config into pipeline components. Nil registries use
// the package defaults.
type Loader struct {
	Config    Config
	Stemmers  *stem.Registry
	Stoplists *stoplist.Registry
	Trainers  *model.Registry
	// Cache stores vocabulary snapshots when vocabulary.serialize is set.
	Cache   vocab.SnapshotCache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Components holds everything built from the configuration
type Components struct {
	Stemmer    stem.Stemmer
	Stopwords  *stoplist.Set
	Normalizer *vocab.Normalizer
	// Vocabulary is nil without vocabulary.path.
	Vocabulary *vocab.Store
	Generator  *ingest.Generator
	Pipeline   *pipeline.Pipeline
}

// Load builds the components. The vocabulary, when configured, is fully
// built before the pipeline is created.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg := l.Config
	cfg.ApplyDefaults()
	log := logger.OrNop(l.Logger)

	stemmers := l.Stemmers
	if stemmers == nil {
		stemmers = stem.DefaultRegistry()
	}
	trainers := l.Trainers
	if trainers == nil {
		trainers = model.DefaultRegistry()
	}
	if _, err := trainers.Trainer(cfg.Model.Scorer); err != nil {
		return nil, err
	}

	comp := &Components{}

	stemmer, err := stemmers.New(cfg.Stemmer)
	if err != nil {
		return nil, fmt.Errorf("load stemmer: %w", err)
	}
	comp.Stemmer = stemmer

	stops, err := l.stopwords(cfg)
	if err != nil {
		return nil, fmt.Errorf("load stopwords: %w", err)
	}
	comp.Stopwords = stops

	comp.Normalizer = vocab.NewNormalizer(stemmer, stops, vocab.PolicyFor(cfg.Vocabulary.Name))

	if cfg.Vocabulary.Path != "" {
		comp.Vocabulary, err = vocab.Load(ctx, vocab.LoadOptions{
			Path:   cfg.Vocabulary.Path,
			Format: cfg.Vocabulary.Format,
			BuildOptions: vocab.BuildOptions{
				Name:       cfg.Vocabulary.Name,
				Language:   cfg.Documents.Language,
				Normalizer: comp.Normalizer,
				Logger:     log,
			},
			Serialize: cfg.Vocabulary.Serialize && l.Cache != nil,
			Cache:     l.Cache,
			CacheKey:  cfg.Vocabulary.Name + "@" + cfg.Documents.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
	}

	gen := ingest.NewGenerator(stops)
	gen.Normalizer = comp.Normalizer
	gen.Vocabulary = comp.Vocabulary
	gen.AllowUnbound = cfg.Vocabulary.AllowUnbound
	gen.MaxPhraseLength = cfg.Extraction.MaxPhraseLength
	gen.MinPhraseLength = cfg.Extraction.MinPhraseLength
	gen.MinOccurrence = cfg.Extraction.MinOccurrence
	comp.Generator = gen

	families := *cfg.Features
	comp.Pipeline = pipeline.New(pipeline.Options{
		Generator:                gen,
		Trainers:                 trainers,
		Logger:                   log,
		Metrics:                  l.Metrics,
		Families:                 families,
		Scorer:                   cfg.Model.Scorer,
		Topics:                   cfg.Extraction.Topics,
		Cutoff:                   cfg.Extraction.Cutoff,
		GlobalDictionaryFromTest: cfg.Extraction.GlobalDictionaryFromTest,
		Workers:                  cfg.Extraction.Workers,
		Metadata:                 cfg.Metadata(),
	})

	log.Debug("components loaded",
		zap.String("stemmer", cfg.Stemmer),
		zap.Int("stopwords", stops.Len()),
		zap.String("vocabulary", cfg.Vocabulary.Name),
		zap.Strings("schema", comp.Pipeline.Schema()),
	)
	return comp, nil
}

// stopwords resolves the stopwords option: a YAML file path, a registry
// language, or documents.language when empty.
func (l *Loader) stopwords(cfg Config) (*stoplist.Set, error) {
	sel := cfg.Stopwords
	if ext := strings.ToLower(filepath.Ext(sel)); ext == ".yaml" || ext == ".yml" {
		sl, err := LoadStoplist(sel)
		if err != nil {
			return nil, err
		}
		return stoplist.New(sl.Terms), nil
	}

	if sel == "" {
		sel = cfg.Documents.Language
	}
	reg := l.Stoplists
	if reg == nil {
		reg = stoplist.DefaultRegistry()
	}
	set, ok := reg.Lookup(sel)
	if !ok {
		logger.OrNop(l.Logger).Warn("no stopword list for language, using fallback", zap.String("language", sel))
	}
	return set, nil
}

// Metadata lists the settings a trained model depends on, for recording
// in the model artifact.
func (c *Config) Metadata() map[string]string {
	return map[string]string{
		"stemmer":           c.Stemmer,
		"stopwords":         c.Stopwords,
		"language":          c.Documents.Language,
		"vocabulary_format": c.Vocabulary.Format,
		"max_phrase_length": fmt.Sprint(c.Extraction.MaxPhraseLength),
		"min_phrase_length": fmt.Sprint(c.Extraction.MinPhraseLength),
		"min_occurrence":    fmt.Sprint(c.Extraction.MinOccurrence),
	}
}
