package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// TrainerFactory creates a fresh trainer.
type TrainerFactory func() Trainer

// Decoder restores a model from its encoded state.
type Decoder func(data []byte) (Model, error)

// Registry maps scorer names to trainers and decoders.
type Registry struct {
	trainers map[string]TrainerFactory
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trainers: make(map[string]TrainerFactory),
		decoders: make(map[string]Decoder),
	}
}

// DefaultRegistry holds the logistic and bayes scorers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindLogistic, func() Trainer { return NewLogistic() }, decodeJSON[LogisticModel, *LogisticModel])
	r.Register(KindBayes, func() Trainer { return NaiveBayes{} }, decodeJSON[NaiveBayesModel, *NaiveBayesModel])
	return r
}

// Register adds a scorer.
func (r *Registry) Register(kind string, trainer TrainerFactory, decoder Decoder) {
	kind = strings.ToLower(kind)
	r.trainers[kind] = trainer
	r.decoders[kind] = decoder
}

// Trainer resolves a trainer by name.
func (r *Registry) Trainer(kind string) (Trainer, error) {
	f, ok := r.trainers[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scorer %q (known: %s)",
			domain.ErrConfiguration, kind, strings.Join(r.Names(), ", "))
	}
	return f(), nil
}

// Names lists the registered scorers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.trainers))
	for k := range r.trainers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Encode serializes a model's state.
func Encode(m Model) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s model: %w", m.Kind(), err)
	}
	return data, nil
}

// Decode restores a model of the given kind.
func (r *Registry) Decode(kind string, data []byte) (Model, error) {
	dec, ok := r.decoders[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scorer %q in model", domain.ErrConfiguration, kind)
	}
	return dec(data)
}

func decodeJSON[T any, PT interface {
	*T
	Model
}](data []byte) (Model, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode model state: %v", domain.ErrParse, err)
	}
	return PT(&m), nil
}
