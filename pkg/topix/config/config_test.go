package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadStoplist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoplist.yaml")
	writeFile(t, path, `terms:
  - the
  - a
  - and
`)

	sl, err := LoadStoplist(path)
	if err != nil {
		t.Fatalf("Failed to load stoplist: %v", err)
	}

	if len(sl.Terms) != 3 {
		t.Errorf("Expected 3 terms, got %d", len(sl.Terms))
	}

	expected := map[string]bool{"the": true, "a": true, "and": true}
	for _, term := range sl.Terms {
		if !expected[term] {
			t.Errorf("Unexpected term: %s", term)
		}
	}

	if _, err := LoadStoplist(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TOPIX_DOCS", "/data/train")
	t.Setenv("TOPIX_LANG", "")

	path := filepath.Join(t.TempDir(), "topix.yaml")
	writeFile(t, path, `documents:
  dir: ${TOPIX_DOCS}
  language: ${TOPIX_LANG:-fr}
vocabulary:
  path: /data/agrovoc_en.rdf.gz
  serialize: true
extraction:
  topics: 5
features:
  basic: true
  thesaurus: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Documents.Dir != "/data/train" {
		t.Errorf("Expected dir from environment, got %q", cfg.Documents.Dir)
	}
	if cfg.Documents.Language != "fr" {
		t.Errorf("Expected default language fr, got %q", cfg.Documents.Language)
	}
	if cfg.Vocabulary.Format != vocab.FormatSKOS {
		t.Errorf("Expected inferred format skos, got %q", cfg.Vocabulary.Format)
	}
	if cfg.Vocabulary.Name != "agrovoc_en" {
		t.Errorf("Expected name agrovoc_en, got %q", cfg.Vocabulary.Name)
	}
	if cfg.Extraction.Topics != 5 {
		t.Errorf("Expected 5 topics, got %d", cfg.Extraction.Topics)
	}
	if cfg.Extraction.Cutoff != 0 || cfg.Extraction.MaxPhraseLength != 5 || cfg.Extraction.MinPhraseLength != 1 {
		t.Errorf("Unexpected extraction defaults: %+v", cfg.Extraction)
	}
	if *cfg.Features != (features.Families{Basic: true, Thesaurus: true}) {
		t.Errorf("Expected basic and thesaurus families, got %+v", *cfg.Features)
	}
	if cfg.Stemmer != "sremoval" || cfg.Model.Scorer != "logistic" || cfg.CrossValidation.Folds != 10 {
		t.Errorf("Unexpected defaults: stemmer %q scorer %q folds %d", cfg.Stemmer, cfg.Model.Scorer, cfg.CrossValidation.Folds)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "documents: [unclosed\n")
	if _, err := Load(bad); !errors.Is(err, domain.ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "vocabulary:\n  path: x.rdf\n  format: owl\n")
	if _, err := Load(invalid); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if cfg.Extraction.Topics != 10 {
		t.Errorf("Expected 10 topics, got %d", cfg.Extraction.Topics)
	}
	if *cfg.Features != features.AllFamilies() {
		t.Errorf("Expected all feature families, got %+v", *cfg.Features)
	}
	if cfg.Vocabulary.Format != "" {
		t.Errorf("Expected no vocabulary format without a path, got %q", cfg.Vocabulary.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"bad format", func(c *Config) { c.Vocabulary.Format = "owl" }},
		{"serialize without vocabulary", func(c *Config) { c.Vocabulary.Serialize = true }},
		{"unbound without vocabulary", func(c *Config) { c.Vocabulary.AllowUnbound = true }},
		{"negative topics", func(c *Config) { c.Extraction.Topics = -1 }},
		{"cutoff one", func(c *Config) { c.Extraction.Cutoff = 1 }},
		{"negative cutoff", func(c *Config) { c.Extraction.Cutoff = -0.1 }},
		{"max below min", func(c *Config) { c.Extraction.MinPhraseLength = 3; c.Extraction.MaxPhraseLength = 2 }},
		{"min occurrence", func(c *Config) { c.Extraction.MinOccurrence = -1 }},
		{"workers", func(c *Config) { c.Extraction.Workers = -2 }},
		{"folds", func(c *Config) { c.CrossValidation.Folds = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	cfg := Default()
	cfg.Documents.Dir = "/data"

	if err := cfg.Require("documents.dir"); err != nil {
		t.Errorf("Expected documents.dir to be present: %v", err)
	}
	err := cfg.Require("documents.dir", "model.path")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
	if want := "configuration error: missing required option model.path"; err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestInferFormatAndName(t *testing.T) {
	tests := []struct {
		path, format, name string
	}{
		{"/v/agrovoc.rdf", vocab.FormatSKOS, "agrovoc"},
		{"/v/mesh.nt.gz", vocab.FormatSKOS, "mesh"},
		{"/v/lcsh.en", vocab.FormatText, "lcsh"},
		{"thesaurus", vocab.FormatText, "thesaurus"},
	}
	for _, tt := range tests {
		if got := inferFormat(tt.path); got != tt.format {
			t.Errorf("inferFormat(%q): expected %q, got %q", tt.path, tt.format, got)
		}
		if got := baseName(tt.path); got != tt.name {
			t.Errorf("baseName(%q): expected %q, got %q", tt.path, tt.name, got)
		}
	}
}
