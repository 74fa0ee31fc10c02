package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// KindBayes is the registry name of Gaussian naive Bayes.
const KindBayes = "bayes"

// minVariance keeps constant features from producing infinite densities.
const minVariance = 1e-9

// NaiveBayes trains a Gaussian naive Bayes classifier.
type NaiveBayes struct{}

// NaiveBayesModel holds per-class priors and feature distributions.
// Index 0 is the negative class, 1 the positive class.
type NaiveBayesModel struct {
	LogPrior [2]float64   `json:"log_prior"`
	Mean     [2][]float64 `json:"mean"`
	Variance [2][]float64 `json:"variance"`
}

// Kind implements Model.
func (m *NaiveBayesModel) Kind() string { return KindBayes }

// Score implements Model.
func (m *NaiveBayesModel) Score(x []float64) float64 {
	if len(x) != len(m.Mean[0]) {
		return 0
	}
	var ll [2]float64
	for c := 0; c < 2; c++ {
		ll[c] = m.LogPrior[c]
		for j, v := range x {
			ll[c] += logNormal(v, m.Mean[c][j], m.Variance[c][j])
		}
	}
	return clamp01(sigmoid(ll[1] - ll[0]))
}

// Train implements Trainer.
func (NaiveBayes) Train(samples []Sample) (Model, error) {
	width, positives, err := checkSamples(samples)
	if err != nil {
		return nil, err
	}

	var byClass [2][]Sample
	for _, s := range samples {
		if s.Y {
			byClass[1] = append(byClass[1], s)
		} else {
			byClass[0] = append(byClass[0], s)
		}
	}

	m := &NaiveBayesModel{}
	n := float64(len(samples))
	m.LogPrior[1] = math.Log(float64(positives) / n)
	m.LogPrior[0] = math.Log((n - float64(positives)) / n)
	for c := 0; c < 2; c++ {
		m.Mean[c] = make([]float64, width)
		m.Variance[c] = make([]float64, width)
		for j := 0; j < width; j++ {
			col := column(byClass[c], j)
			mean, variance := stat.MeanVariance(col, nil)
			if math.IsNaN(variance) || variance < minVariance {
				variance = minVariance
			}
			m.Mean[c][j] = mean
			m.Variance[c][j] = variance
		}
	}
	return m, nil
}

func logNormal(x, mean, variance float64) float64 {
	d := x - mean
	return -0.5*math.Log(2*math.Pi*variance) - d*d/(2*variance)
}
