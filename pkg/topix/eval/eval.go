// Package eval measures extraction quality against gold topics.
package eval

import (
	"context"
	"fmt"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/rank"
)

// Metrics are the precision, recall and F1 of one document or the mean
// over several.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate computes metrics from counts:
//
//	precision = matched / extracted  (0 when nothing was extracted)
//	recall    = matched / gold       (0 when there is no gold topic)
//	F1        = harmonic mean        (0 when both are 0)
func Evaluate(matched, extracted, gold int) Metrics {
	var m Metrics
	if extracted > 0 {
		m.Precision = float64(matched) / float64(extracted)
	}
	if gold > 0 {
		m.Recall = float64(matched) / float64(gold)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// EvaluateTopics evaluates a ranked topic list whose Correct flags are set.
func EvaluateTopics(topics []rank.Scored, gold int) Metrics {
	matched := 0
	for _, t := range topics {
		if t.Correct {
			matched++
		}
	}
	return Evaluate(matched, len(topics), gold)
}

// Macro returns the arithmetic mean of each metric.
func Macro(ms []Metrics) Metrics {
	if len(ms) == 0 {
		return Metrics{}
	}
	var sum Metrics
	for _, m := range ms {
		sum.Precision += m.Precision
		sum.Recall += m.Recall
		sum.F1 += m.F1
	}
	n := float64(len(ms))
	return Metrics{Precision: sum.Precision / n, Recall: sum.Recall / n, F1: sum.F1 / n}
}

// Fold is one split of a cross-validation: documents [Start, End) are
// tested, all others train.
type Fold struct {
	Index int
	Start int
	End   int
}

// Split partitions docs into the fold's training and test documents.
func (f Fold) Split(docs []ingest.Document) (train, test []ingest.Document) {
	train = make([]ingest.Document, 0, len(docs)-(f.End-f.Start))
	train = append(train, docs[:f.Start]...)
	train = append(train, docs[f.End:]...)
	return train, docs[f.Start:f.End]
}

// Folds partitions n documents into k contiguous blocks in input order.
// Blocks differ in size by at most one; the leading blocks take the
// remainder.
func Folds(n, k int) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("%w: need 2 <= folds <= %d documents, got %d", domain.ErrConfiguration, n, k)
	}
	size, rem := n/k, n%k
	folds := make([]Fold, k)
	start := 0
	for i := range folds {
		end := start + size
		if i < rem {
			end++
		}
		folds[i] = Fold{Index: i, Start: start, End: end}
		start = end
	}
	return folds, nil
}

// Runner trains on one set of documents and returns the per-document
// metrics of applying the result to another.
type Runner interface {
	Run(ctx context.Context, train, test []ingest.Document) ([]Metrics, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, train, test []ingest.Document) ([]Metrics, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, train, test []ingest.Document) ([]Metrics, error) {
	return f(ctx, train, test)
}

// FoldReport is the outcome of one fold.
type FoldReport struct {
	Fold    Fold
	Metrics Metrics
}

// Report is the outcome of a cross-validation.
type Report struct {
	Folds []FoldReport
	// Mean is the mean over folds of the per-fold macro metrics.
	Mean Metrics
}

// CrossValidate runs k-fold cross-validation over docs without shuffling.
// Any fold error aborts the run.
func CrossValidate(ctx context.Context, docs []ingest.Document, k int, r Runner) (Report, error) {
	folds, err := Folds(len(docs), k)
	if err != nil {
		return Report{}, err
	}

	var report Report
	perFold := make([]Metrics, 0, k)
	for _, f := range folds {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		train, test := f.Split(docs)
		ms, err := r.Run(ctx, train, test)
		if err != nil {
			return Report{}, fmt.Errorf("fold %d: %w", f.Index+1, err)
		}
		m := Macro(ms)
		report.Folds = append(report.Folds, FoldReport{Fold: f, Metrics: m})
		perFold = append(perFold, m)
	}
	report.Mean = Macro(perFold)
	return report, nil
}
