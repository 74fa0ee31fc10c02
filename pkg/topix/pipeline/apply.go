package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/eval"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/rank"
)

// Result holds the topics selected for one document.
type Result struct {
	Document ingest.Document
	Topics   []rank.Scored
	// GoldCount is the number of distinct gold topics, the most that
	// could be matched.
	GoldCount int
}

// HasGold reports whether the document came with gold topics.
func (r Result) HasGold() bool { return r.Document.HasGold() }

// Matched counts the selected topics that are gold topics.
func (r Result) Matched() int {
	n := 0
	for _, t := range r.Topics {
		if t.Correct {
			n++
		}
	}
	return n
}

// Metrics evaluates the result against its gold topics.
func (r Result) Metrics() eval.Metrics {
	return eval.EvaluateTopics(r.Topics, r.GoldCount)
}

// Apply scores the candidates of every document with m and selects the
// top topics. With GlobalDictionaryFromTest, all documents are processed
// and counted before the first one is scored. Results are in input order.
func (p *Pipeline) Apply(ctx context.Context, m *Model, docs []ingest.Document) ([]Result, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StageApply, start)

	if err := m.Schema.Check(p.schema); err != nil {
		return nil, err
	}
	if got, want := vocabularyName(p), m.VocabularyName(); got != want {
		return nil, fmt.Errorf("%w: model %s was trained with vocabulary %q, pipeline uses %q",
			domain.ErrConfiguration, m.ID, want, got)
	}

	batch, err := p.processAll(ctx, docs, "apply")
	if err != nil {
		return nil, err
	}

	dict := m.Dictionary
	inDictionary := false
	if p.opts.GlobalDictionaryFromTest {
		if dict, err = p.FinishBatch(ctx, batch); err != nil {
			return nil, err
		}
		inDictionary = true
	}
	ext := &features.Extractor{
		Schema:        p.schema,
		Dictionary:    dict,
		Keyphraseness: m.Keyphraseness,
		Vocabulary:    p.generator.Vocabulary,
	}

	results := make([]Result, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range batch {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.score(m, ext, batch[i], inDictionary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) score(m *Model, ext *features.Extractor, dc DocCandidates, inDictionary bool) Result {
	ds := features.NewDocStats(dc.Words, dc.Candidates, inDictionary)
	scored := make([]rank.Scored, 0, len(dc.Candidates))
	for _, c := range dc.Candidates {
		scored = append(scored, rank.Scored{
			Title:   c.Title,
			Key:     c.Key,
			Score:   m.Scorer.Score(ext.Vector(c, ds, false, false)),
			Order:   c.Order,
			Correct: dc.Gold.Matches(c),
		})
	}
	topics := rank.Select(scored, p.opts.Topics, p.opts.Cutoff)
	p.metrics.TopicsEmitted(len(topics))

	if p.logger.Core().Enabled(zap.DebugLevel) {
		for _, t := range topics {
			p.logger.Debug("topic selected",
				zap.String("doc", dc.Document.ID),
				zap.String("title", t.Title),
				zap.Float64("score", t.Score),
				zap.Bool("correct", t.Correct),
			)
		}
	}
	return Result{Document: dc.Document, Topics: topics, GoldCount: dc.Gold.Count()}
}

func vocabularyName(p *Pipeline) string {
	if p.generator.Vocabulary == nil {
		return ""
	}
	return p.generator.Vocabulary.Name()
}

// Evaluate returns the per-document metrics of the results that have
// gold topics, in order.
func Evaluate(results []Result) []eval.Metrics {
	var ms []eval.Metrics
	for _, r := range results {
		if r.HasGold() {
			ms = append(ms, r.Metrics())
		}
	}
	return ms
}

// Runner trains on one part of a collection and evaluates on the other,
// for eval.CrossValidate.
func (p *Pipeline) Runner() eval.Runner {
	return eval.RunnerFunc(func(ctx context.Context, train, test []ingest.Document) ([]eval.Metrics, error) {
		m, err := p.Train(ctx, train)
		if err != nil {
			return nil, err
		}
		results, err := p.Apply(ctx, m, test)
		if err != nil {
			return nil, err
		}
		return Evaluate(results), nil
	})
}

// CrossValidate runs k-fold cross-validation over docs and logs each
// fold's metrics.
func (p *Pipeline) CrossValidate(ctx context.Context, docs []ingest.Document, k int) (eval.Report, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StageEvaluate, start)

	report, err := eval.CrossValidate(ctx, docs, k, p.Runner())
	if err != nil {
		return eval.Report{}, err
	}
	for _, f := range report.Folds {
		p.logger.Info("fold evaluated",
			zap.Int("fold", f.Fold.Index+1),
			zap.Int("test_start", f.Fold.Start),
			zap.Int("test_end", f.Fold.End),
			zap.Float64("precision", f.Metrics.Precision),
			zap.Float64("recall", f.Metrics.Recall),
			zap.Float64("f1", f.Metrics.F1),
		)
	}
	return report, nil
}
