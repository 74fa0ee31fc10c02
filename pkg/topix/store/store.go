package store

import (
	"context"
	"time"

	"github.com/cognicore/topix/pkg/topix/vocab"
)

// DefaultModel is the artifact name used when none is given.
const DefaultModel = "default"

// Artifact is the persisted form of a trained model: scorer state plus
// the statistics the feature extractor needs at application time.
type Artifact struct {
	ID      string
	Created time.Time
	// Scorer names the model kind in the model registry.
	Scorer string
	State  []byte
	Schema []string

	// Docs and DF form the global document-frequency dictionary.
	Docs          int64
	DF            map[string]int64
	Keyphraseness map[string]int64

	Vocabulary string
	Options    map[string]string
}

// Store persists model artifacts and vocabulary snapshots. Loading a
// name that was never saved returns an error wrapping
// domain.ErrResourceNotFound.
type Store interface {
	SaveModel(ctx context.Context, name string, a Artifact) error
	LoadModel(ctx context.Context, name string) (Artifact, error)
	// Models lists the saved artifact names.
	Models(ctx context.Context) ([]string, error)

	vocab.SnapshotCache

	Close() error
}
