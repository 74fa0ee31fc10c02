// Package pipeline turns documents into ranked topics: candidate
// generation, feature extraction, training and application.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/topix/internal/logger"
	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/model"
)

// DefaultTopics is the number of topics kept per document by default.
const DefaultTopics = 10

// Options configures a Pipeline.
type Options struct {
	// Generator produces candidates; its Vocabulary, when set, switches the
	// pipeline to controlled-vocabulary mode. Nil uses a generator without
	// stopwords.
	Generator *ingest.Generator
	// Trainers resolves Scorer. Nil uses model.DefaultRegistry.
	Trainers *model.Registry
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// Families selects the features. The zero value enables all of them.
	Families features.Families
	// Scorer names the trainer used by Train. Empty means logistic.
	Scorer string
	// Topics caps the topics per document; <= 0 keeps every topic above
	// Cutoff.
	Topics int
	Cutoff float64
	// GlobalDictionaryFromTest rebuilds document frequencies from the
	// batch being applied instead of using the model's dictionary.
	GlobalDictionaryFromTest bool
	// Workers bounds per-document parallelism. <= 0 uses GOMAXPROCS.
	Workers int
	// Metadata is recorded in trained models.
	Metadata map[string]string
}

// Pipeline runs training and application over document batches. It is
// safe for concurrent use once built.
type Pipeline struct {
	tokenizer *ingest.Tokenizer
	generator *ingest.Generator
	trainers  *model.Registry
	schema    features.Schema
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.Metrics

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.Generator == nil {
		opts.Generator = ingest.NewGenerator(nil)
	}
	if opts.Trainers == nil {
		opts.Trainers = model.DefaultRegistry()
	}
	if opts.Families == (features.Families{}) {
		opts.Families = features.AllFamilies()
	}
	if opts.Scorer == "" {
		opts.Scorer = model.KindLogistic
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{
		tokenizer: ingest.NewTokenizer(),
		generator: opts.Generator,
		trainers:  opts.Trainers,
		schema:    features.NewSchema(opts.Families),
		opts:      opts,
		logger:    logger.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// Schema returns the feature schema of the pipeline.
func (p *Pipeline) Schema() features.Schema { return p.schema }

// Generator returns the candidate generator.
func (p *Pipeline) Generator() *ingest.Generator { return p.generator }

// DocCandidates is a processed document: its candidates and normalized
// gold topics.
type DocCandidates struct {
	Document   ingest.Document
	Words      int
	Candidates []*ingest.Candidate
	// Gold is empty when the document has no gold topics.
	Gold features.Gold
}

// Process tokenizes a document and generates its candidates. It has no
// side effects on the pipeline.
func (p *Pipeline) Process(doc ingest.Document) (DocCandidates, error) {
	if err := doc.Validate(); err != nil {
		return DocCandidates{}, err
	}
	tokens := p.tokenizer.Tokenize(doc.Text)
	dc := DocCandidates{
		Document:   doc,
		Words:      len(tokens),
		Candidates: p.generator.Generate(tokens),
	}
	if doc.HasGold() {
		dc.Gold = features.NewGold(doc.Topics, p.generator.Key, p.generator.Vocabulary)
	}
	p.metrics.CandidatesGenerated(len(dc.Candidates))
	p.logger.Debug("document processed",
		zap.String("doc", doc.ID),
		zap.Int("words", dc.Words),
		zap.Int("candidates", len(dc.Candidates)),
		zap.Int("gold", dc.Gold.Count()),
	)
	return dc, nil
}

// processAll runs Process over docs in parallel, keeping input order.
func (p *Pipeline) processAll(ctx context.Context, docs []ingest.Document, mode string) ([]DocCandidates, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StageProcess, start)

	out := make([]DocCandidates, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dc, err := p.Process(docs[i])
			if err != nil {
				return fmt.Errorf("document %q: %w", docs[i].ID, err)
			}
			out[i] = dc
			p.metrics.DocumentProcessed(mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FinishBatch computes the document frequencies of a whole batch. It is
// the barrier between processing and scoring when the dictionary comes
// from the batch itself. The returned dictionary is frozen.
func (p *Pipeline) FinishBatch(ctx context.Context, batch []DocCandidates) (*features.Dictionary, error) {
	dict := features.NewDictionary()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range batch {
		dc := &batch[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return dict.AddDocument(statsKeys(dc.Candidates))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	dict.Freeze()
	p.logger.Debug("batch statistics finished",
		zap.Int64("docs", dict.Docs()),
		zap.Int("keys", dict.Len()),
	)
	return dict, nil
}

// statsKeys returns the distinct statistics keys of a document's
// candidates in sorted order.
func statsKeys(cands []*ingest.Candidate) []string {
	seen := make(map[string]bool, len(cands))
	keys := make([]string, 0, len(cands))
	for _, c := range cands {
		k := features.StatsKey(c)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (p *Pipeline) newID(t time.Time) string {
	p.idMu.Lock()
	defer p.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}
