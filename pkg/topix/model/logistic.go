package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// KindLogistic is the registry name of logistic regression.
const KindLogistic = "logistic"

// Logistic trains an L2-regularized logistic regression on standardized
// features with batch gradient descent.
type Logistic struct {
	Iterations   int
	LearningRate float64
	L2           float64
	// Balanced weights classes inversely to their frequency.
	Balanced bool
}

// NewLogistic returns a trainer with working defaults.
func NewLogistic() *Logistic {
	return &Logistic{Iterations: 500, LearningRate: 0.5, L2: 1e-3, Balanced: true}
}

// LogisticModel is a fitted logistic regression.
type LogisticModel struct {
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Kind implements Model.
func (m *LogisticModel) Kind() string { return KindLogistic }

// Score implements Model.
func (m *LogisticModel) Score(x []float64) float64 {
	if len(x) != len(m.Weights) {
		return 0
	}
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * standardize(v, m.Mean[j], m.Std[j])
	}
	return clamp01(sigmoid(z))
}

// Train implements Trainer.
func (l *Logistic) Train(samples []Sample) (Model, error) {
	width, positives, err := checkSamples(samples)
	if err != nil {
		return nil, err
	}

	m := &LogisticModel{
		Mean:    make([]float64, width),
		Std:     make([]float64, width),
		Weights: make([]float64, width),
	}
	for j := 0; j < width; j++ {
		m.Mean[j], m.Std[j] = stat.MeanStdDev(column(samples, j), nil)
	}

	n := float64(len(samples))
	posWeight, negWeight := 1.0, 1.0
	if l.Balanced {
		posWeight = n / (2 * float64(positives))
		negWeight = n / (2 * (n - float64(positives)))
	}

	xs := make([][]float64, len(samples))
	for i, s := range samples {
		xs[i] = make([]float64, width)
		for j, v := range s.X {
			xs[i][j] = standardize(v, m.Mean[j], m.Std[j])
		}
	}

	grad := make([]float64, width)
	for it := 0; it < l.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i, s := range samples {
			y, w := 0.0, negWeight
			if s.Y {
				y, w = 1, posWeight
			}
			diff := w * (sigmoid(floats.Dot(m.Weights, xs[i])+m.Bias) - y)
			floats.AddScaled(grad, diff, xs[i])
			gradBias += diff
		}
		floats.Scale(1/n, grad)
		floats.AddScaled(grad, l.L2, m.Weights)

		floats.AddScaled(m.Weights, -l.LearningRate, grad)
		m.Bias -= l.LearningRate * gradBias / n
	}

	if floats.HasNaN(m.Weights) || math.IsNaN(m.Bias) || math.IsInf(m.Bias, 0) {
		return nil, fmt.Errorf("%w: logistic regression diverged", domain.ErrTraining)
	}
	for _, w := range m.Weights {
		if math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: logistic regression diverged", domain.ErrTraining)
		}
	}
	return m, nil
}

func standardize(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}
