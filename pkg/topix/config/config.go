package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/model"
	"github.com/cognicore/topix/pkg/topix/pipeline"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// Config is the run configuration of the topix tools.
type Config struct {
	Documents  DocumentsConfig  `yaml:"documents"`
	Model      ModelConfig      `yaml:"model"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Extraction ExtractionConfig `yaml:"extraction"`
	// Features selects the feature families; omitted enables all.
	Features *features.Families `yaml:"features"`
	// Stemmer is a name from the stemmer registry (default: sremoval).
	Stemmer string `yaml:"stemmer"`
	// Stopwords is a language from the stopword registry or the path of
	// a YAML stoplist. Empty uses documents.language.
	Stopwords       string                `yaml:"stopwords"`
	CrossValidation CrossValidationConfig `yaml:"crossval"`
	Logging         LoggingConfig         `yaml:"logging"`
	Metrics         MetricsConfig         `yaml:"metrics"`
}

type DocumentsConfig struct {
	Dir      string `yaml:"dir"`
	Encoding string `yaml:"encoding"` // IANA name, "default" = UTF-8
	Language string `yaml:"language"`
}

type ModelConfig struct {
	// Path is the SQLite file holding trained models.
	Path   string `yaml:"path"`
	Name   string `yaml:"name"`
	Scorer string `yaml:"scorer"`
}

type VocabularyConfig struct {
	Path string `yaml:"path"`
	// Format is text or skos; inferred from Path when empty.
	Format string `yaml:"format"`
	// Name selects the normalization policy (mesh, lcsh, ...); defaults to
	// the file name without extensions.
	Name      string `yaml:"name"`
	Serialize bool   `yaml:"serialize"`
	// CachePath is a SQLite file for serialized vocabularies; empty uses
	// the model file.
	CachePath    string `yaml:"cache_path"`
	AllowUnbound bool   `yaml:"allow_unbound"`
}

type ExtractionConfig struct {
	Topics                   int     `yaml:"topics"`
	Cutoff                   float64 `yaml:"cutoff"`
	MaxPhraseLength          int     `yaml:"max_phrase_length"`
	MinPhraseLength          int     `yaml:"min_phrase_length"`
	MinOccurrence            int     `yaml:"min_occurrence"`
	GlobalDictionaryFromTest bool    `yaml:"global_dictionary_from_test"`
	WriteScores              bool    `yaml:"write_scores"`
	Workers                  int     `yaml:"workers"`
}

type CrossValidationConfig struct {
	Folds int `yaml:"folds"`
}

type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, dev
	Level string `yaml:"level"` // debug, info, warn, error
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from a YAML file, expanding ${VAR} and
// ${VAR:-default} references, then applies defaults and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: config %s", domain.ErrResourceNotFound, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config %s: %v", domain.ErrIO, path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: config %s: %v", domain.ErrParse, path, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used without a file.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Documents.Encoding == "" {
		c.Documents.Encoding = "default"
	}
	if c.Documents.Language == "" {
		c.Documents.Language = "en"
	}
	if c.Model.Name == "" {
		c.Model.Name = "default"
	}
	if c.Model.Scorer == "" {
		c.Model.Scorer = model.KindLogistic
	}
	if c.Vocabulary.Path != "" {
		if c.Vocabulary.Format == "" {
			c.Vocabulary.Format = inferFormat(c.Vocabulary.Path)
		}
		if c.Vocabulary.Name == "" {
			c.Vocabulary.Name = baseName(c.Vocabulary.Path)
		}
	}
	if c.Extraction.Topics == 0 {
		c.Extraction.Topics = pipeline.DefaultTopics
	}
	if c.Extraction.MaxPhraseLength == 0 {
		c.Extraction.MaxPhraseLength = ingest.DefaultMaxPhraseLength
	}
	if c.Extraction.MinPhraseLength == 0 {
		c.Extraction.MinPhraseLength = ingest.DefaultMinPhraseLength
	}
	if c.Extraction.MinOccurrence == 0 {
		c.Extraction.MinOccurrence = 1
	}
	if c.Features == nil {
		all := features.AllFamilies()
		c.Features = &all
	}
	if c.Stemmer == "" {
		c.Stemmer = "sremoval"
	}
	if c.CrossValidation.Folds == 0 {
		c.CrossValidation.Folds = 10
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Vocabulary.Format {
	case "", vocab.FormatText, vocab.FormatSKOS:
	default:
		return fmt.Errorf("%w: vocabulary.format must be %q or %q, got %q",
			domain.ErrConfiguration, vocab.FormatText, vocab.FormatSKOS, c.Vocabulary.Format)
	}
	if c.Vocabulary.Serialize && c.Vocabulary.Path == "" {
		return fmt.Errorf("%w: vocabulary.serialize needs vocabulary.path", domain.ErrConfiguration)
	}
	if c.Vocabulary.AllowUnbound && c.Vocabulary.Path == "" {
		return fmt.Errorf("%w: vocabulary.allow_unbound needs vocabulary.path", domain.ErrConfiguration)
	}
	if c.Extraction.Topics < 0 {
		return fmt.Errorf("%w: extraction.topics must be >= 0, got %d", domain.ErrConfiguration, c.Extraction.Topics)
	}
	if c.Extraction.Cutoff < 0 || c.Extraction.Cutoff >= 1 {
		return fmt.Errorf("%w: extraction.cutoff must be in [0,1), got %v", domain.ErrConfiguration, c.Extraction.Cutoff)
	}
	if c.Extraction.MinPhraseLength < 1 || c.Extraction.MaxPhraseLength < c.Extraction.MinPhraseLength {
		return fmt.Errorf("%w: need 1 <= extraction.min_phrase_length <= extraction.max_phrase_length, got %d and %d",
			domain.ErrConfiguration, c.Extraction.MinPhraseLength, c.Extraction.MaxPhraseLength)
	}
	if c.Extraction.MinOccurrence < 1 {
		return fmt.Errorf("%w: extraction.min_occurrence must be >= 1, got %d", domain.ErrConfiguration, c.Extraction.MinOccurrence)
	}
	if c.Extraction.Workers < 0 {
		return fmt.Errorf("%w: extraction.workers must be >= 0, got %d", domain.ErrConfiguration, c.Extraction.Workers)
	}
	if c.CrossValidation.Folds < 2 {
		return fmt.Errorf("%w: crossval.folds must be >= 2, got %d", domain.ErrConfiguration, c.CrossValidation.Folds)
	}
	return nil
}

// Require returns a configuration error naming the first of the given
// options that is empty. Known options: documents.dir, model.path,
// vocabulary.path.
func (c *Config) Require(options ...string) error {
	for _, opt := range options {
		var v string
		switch opt {
		case "documents.dir":
			v = c.Documents.Dir
		case "model.path":
			v = c.Model.Path
		case "vocabulary.path":
			v = c.Vocabulary.Path
		default:
			return fmt.Errorf("%w: unknown option %q", domain.ErrConfiguration, opt)
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: missing required option %s", domain.ErrConfiguration, opt)
		}
	}
	return nil
}

// inferFormat picks skos for RDF and N-Triples files, text otherwise.
func inferFormat(path string) string {
	p := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	if strings.HasSuffix(p, ".rdf") || strings.HasSuffix(p, ".nt") {
		return vocab.FormatSKOS
	}
	return vocab.FormatText
}

// baseName strips directories and every extension: agrovoc_en.rdf.gz -> agrovoc_en.
func baseName(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: stoplist %s", domain.ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read stoplist %s: %v", domain.ErrIO, path, err)
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("%w: stoplist %s: %v", domain.ErrParse, path, err)
	}
	return &sl, nil
}
