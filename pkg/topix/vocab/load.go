package vocab

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/topix/pkg/topix/domain"
)

// Vocabulary formats accepted by Load.
const (
	FormatSKOS = "skos"
	FormatText = "text"
)

// LoadOptions selects and configures a vocabulary source.
type LoadOptions struct {
	// Path is the .rdf/.rdf.gz/.nt/.nt.gz file for skos, or the .en file
	// (or its prefix) for text.
	Path   string
	Format string
	BuildOptions

	// Serialize consults Cache before building and saves after.
	Serialize bool
	Cache     SnapshotCache
	// CacheKey defaults to Name.
	CacheKey string
}

// Load builds (or restores) a vocabulary store.
func Load(ctx context.Context, opts LoadOptions) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = NewNormalizer(nil, nil, PolicyFor(opts.Name))
	}
	key := opts.CacheKey
	if key == "" {
		key = opts.Name
	}

	sources, err := sourceFiles(opts.Format, opts.Path)
	if err != nil {
		return nil, err
	}

	if opts.Serialize && opts.Cache != nil {
		snap, err := opts.Cache.LoadVocabulary(ctx, key)
		switch {
		case err == nil:
			log.Info("vocabulary restored from cache", zap.String("key", key))
			return FromSnapshot(snap, opts.Normalizer), nil
		case !errors.Is(err, domain.ErrResourceNotFound):
			return nil, fmt.Errorf("load vocabulary snapshot %q: %w", key, err)
		}
	}

	for _, p := range sources {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: vocabulary file %s", domain.ErrResourceNotFound, p)
		}
	}

	var store *Store
	switch opts.Format {
	case FormatSKOS:
		triples, err := readTriplesFile(opts.Path)
		if err != nil {
			return nil, err
		}
		store = BuildFromTriples(triples, opts.BuildOptions)
	case FormatText:
		tables, err := ReadTables(opts.Path)
		if err != nil {
			return nil, err
		}
		store = BuildFromTables(tables, opts.BuildOptions)
	}

	if opts.Serialize && opts.Cache != nil {
		if err := opts.Cache.SaveVocabulary(ctx, key, store.Snapshot()); err != nil {
			log.Warn("vocabulary snapshot not saved", zap.String("key", key), zap.Error(err))
		}
	}
	return store, nil
}

// sourceFiles validates the format/path pair and lists the files to read.
func sourceFiles(format, path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: vocabulary path is required", domain.ErrConfiguration)
	}
	switch format {
	case FormatSKOS:
		for _, ext := range []string{".rdf", ".rdf.gz", ".nt", ".nt.gz"} {
			if strings.HasSuffix(path, ext) {
				return []string{path}, nil
			}
		}
		return nil, fmt.Errorf("%w: skos vocabulary must be .rdf or .nt (optionally .gz): %s",
			domain.ErrConfiguration, path)
	case FormatText:
		en, use, rel := TablePaths(path)
		return []string{en, use, rel}, nil
	}
	return nil, fmt.Errorf("%w: unsupported vocabulary format %q (want skos or text)",
		domain.ErrConfiguration, format)
}

func readTriplesFile(path string) ([]Triple, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var triples []Triple
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".nt") {
		triples, err = ReadNTriples(rc)
	} else {
		triples, err = ReadSKOS(rc)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return triples, nil
}
