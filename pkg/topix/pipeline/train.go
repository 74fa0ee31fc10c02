package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/topix/internal/metrics"
	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/model"
)

// Train fits a model on documents with gold topics. Documents without a
// gold file are skipped. Statistics (dictionary, keyphraseness) are
// gathered over the whole batch before any vector is computed, and the
// scorer is fit once on the pooled samples.
func (p *Pipeline) Train(ctx context.Context, docs []ingest.Document) (*Model, error) {
	start := time.Now()
	defer p.metrics.ObserveStage(metrics.StageTrain, start)

	batch, err := p.processAll(ctx, docs, "train")
	if err != nil {
		return nil, err
	}

	labeled := batch[:0:0]
	for _, dc := range batch {
		if !dc.Document.HasGold() {
			p.logger.Warn("skipping training document without gold topics", zap.String("doc", dc.Document.ID))
			continue
		}
		labeled = append(labeled, dc)
	}
	if len(labeled) == 0 {
		return nil, fmt.Errorf("%w: no training documents with gold topics among %d", domain.ErrTraining, len(docs))
	}

	dict, err := p.FinishBatch(ctx, labeled)
	if err != nil {
		return nil, err
	}
	kp := features.NewKeyphraseness()
	for _, dc := range labeled {
		kp.AddDocument(dc.Gold.StatsKeys())
	}

	ext := &features.Extractor{
		Schema:        p.schema,
		Dictionary:    dict,
		Keyphraseness: kp,
		Vocabulary:    p.generator.Vocabulary,
	}
	perDoc := make([][]model.Sample, len(labeled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range labeled {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = p.samples(ext, labeled[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var samples []model.Sample
	positives := 0
	for _, s := range perDoc {
		for _, sample := range s {
			if sample.Y {
				positives++
			}
		}
		samples = append(samples, s...)
	}

	trainer, err := p.trainers.Trainer(p.opts.Scorer)
	if err != nil {
		return nil, err
	}
	scorer, err := trainer.Train(samples)
	if err != nil {
		return nil, err
	}

	created := time.Now().UTC()
	m := &Model{
		ID:            p.newID(created),
		Created:       created,
		Schema:        append(features.Schema(nil), p.schema...),
		Scorer:        scorer,
		Dictionary:    dict,
		Keyphraseness: kp,
		Vocabulary:    p.generator.Vocabulary,
		Metadata:      make(map[string]string, len(p.opts.Metadata)),
	}
	for k, v := range p.opts.Metadata {
		m.Metadata[k] = v
	}

	p.logger.Info("model trained",
		zap.String("id", m.ID),
		zap.String("scorer", scorer.Kind()),
		zap.Int("docs", len(labeled)),
		zap.Int("samples", len(samples)),
		zap.Int("positives", positives),
		zap.Strings("schema", m.Schema),
	)
	return m, nil
}

// samples computes the labeled vectors of one training document.
func (p *Pipeline) samples(ext *features.Extractor, dc DocCandidates) []model.Sample {
	ds := features.NewDocStats(dc.Words, dc.Candidates, true)
	out := make([]model.Sample, 0, len(dc.Candidates))
	for _, c := range dc.Candidates {
		gold := dc.Gold.Matches(c)
		out = append(out, model.Sample{
			X: ext.Vector(c, ds, true, gold),
			Y: gold,
		})
	}
	return out
}
