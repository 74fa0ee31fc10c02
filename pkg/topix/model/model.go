// Package model provides trainable binary scorers for candidate phrases.
//
// A Trainer fits a Model over the labeled vectors pooled from every
// training document; Model.Score is pure and safe for concurrent use.
package model

import (
	"fmt"
	"math"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Sample is one labeled feature vector.
type Sample struct {
	X []float64
	Y bool
}

// Model scores a feature vector with the probability that it is a topic.
type Model interface {
	// Kind is the registry name of the model's trainer.
	Kind() string
	// Score returns a probability in [0,1].
	Score(x []float64) float64
}

// Trainer fits a model.
type Trainer interface {
	Train(samples []Sample) (Model, error)
}

// checkSamples validates training input and returns the vector width and
// the positive count.
func checkSamples(samples []Sample) (width, positives int, err error) {
	if len(samples) == 0 {
		return 0, 0, fmt.Errorf("%w: no training samples", domain.ErrTraining)
	}
	width = len(samples[0].X)
	for i, s := range samples {
		if len(s.X) != width {
			return 0, 0, fmt.Errorf("%w: sample %d has %d features, want %d",
				domain.ErrTraining, i, len(s.X), width)
		}
		for _, v := range s.X {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("%w: sample %d has a non-finite feature", domain.ErrTraining, i)
			}
		}
		if s.Y {
			positives++
		}
	}
	if positives == 0 || positives == len(samples) {
		return 0, 0, fmt.Errorf("%w: need positive and negative samples, got %d of %d positive",
			domain.ErrTraining, positives, len(samples))
	}
	return width, positives, nil
}

// column copies feature j of every sample.
func column(samples []Sample, j int) []float64 {
	col := make([]float64, len(samples))
	for i, s := range samples {
		col[i] = s.X[j]
	}
	return col
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
