package pipeline

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/features"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/stem"
	"github.com/cognicore/topix/pkg/topix/stoplist"
	"github.com/cognicore/topix/pkg/topix/store/memstore"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// featureScorer scores a candidate by one of its features.
type featureScorer struct {
	index int
	scale float64
}

func (featureScorer) Kind() string { return "feature" }

func (s featureScorer) Score(x []float64) float64 { return x[s.index] * s.scale }

func englishStops() *stoplist.Set {
	set, _ := stoplist.DefaultRegistry().Lookup("en")
	return set
}

func agrovoc() (*vocab.Store, *vocab.Normalizer) {
	norm := vocab.NewNormalizer(stem.SRemoval{}, englishStops(), vocab.DefaultPolicy)
	vs := vocab.BuildFromTriples([]vocab.Triple{
		{Subject: "c1", Relation: vocab.RelPrefLabel, Object: "Soil erosion"},
		{Subject: "c1", Relation: vocab.RelAltLabel, Object: "Erosion of soils"},
		{Subject: "c2", Relation: vocab.RelPrefLabel, Object: "Water"},
		{Subject: "c3", Relation: vocab.RelPrefLabel, Object: "Water (beverage)"},
		{Subject: "c3", Relation: vocab.RelAltLabel, Object: "water"},
		{Subject: "c1", Relation: vocab.RelRelated, Object: "c2"},
	}, vocab.BuildOptions{Name: "agrovoc", Normalizer: norm})
	return vs, norm
}

func farmDocs() []ingest.Document {
	return []ingest.Document{
		{ID: "d1", Text: "Soil erosion threatens farms. Water runs off the fields.", Topics: []string{"Soil erosion"}},
		{ID: "d2", Text: "Water shortage hurts crops. The erosion of soils is slow.", Topics: []string{"Erosion of soils"}},
		{ID: "d3", Text: "Water and soil erosion. Water again.", Topics: []string{"Water"}},
		{ID: "d4", Text: "Soil erosion everywhere. Little water.", Topics: []string{"Soil erosion"}},
	}
}

func TestProcess(t *testing.T) {
	p := New(Options{Generator: ingest.NewGenerator(englishStops())})

	dc, err := p.Process(ingest.Document{ID: "a", Text: "The soil. The crops.", Topics: []string{"Soil", "soil"}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	var keys []string
	for _, c := range dc.Candidates {
		keys = append(keys, c.Key)
	}
	if !reflect.DeepEqual(keys, []string{"soil", "crops"}) {
		t.Errorf("Expected [soil crops], got %v", keys)
	}
	if dc.Words != 4 {
		t.Errorf("Expected 4 words, got %d", dc.Words)
	}
	if dc.Gold.Count() != 1 {
		t.Errorf("Expected 1 distinct gold topic, got %d", dc.Gold.Count())
	}

	if _, err := p.Process(ingest.Document{Text: "no id"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for a document without id, got %v", err)
	}
}

func TestFinishBatch(t *testing.T) {
	ctx := context.Background()
	p := New(Options{Workers: 2})

	var batch []DocCandidates
	for _, text := range []string{"Soil. Crop. Soil.", "Soil. Water."} {
		dc, err := p.Process(ingest.Document{ID: text, Text: text})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		batch = append(batch, dc)
	}

	dict, err := p.FinishBatch(ctx, batch)
	if err != nil {
		t.Fatalf("FinishBatch: %v", err)
	}
	if dict.Docs() != 2 {
		t.Errorf("Expected 2 docs, got %d", dict.Docs())
	}
	if dict.DF("soil") != 2 || dict.DF("crop") != 1 || dict.DF("water") != 1 {
		t.Errorf("Unexpected document frequencies: %v", dict.Entries())
	}
	if !dict.Frozen() {
		t.Error("Expected a frozen dictionary")
	}
}

func TestApplyRanksAndFlagsGold(t *testing.T) {
	p := New(Options{Families: features.Families{Basic: true}, Topics: 2})
	m := &Model{
		ID:            "m",
		Schema:        p.Schema(),
		Scorer:        featureScorer{index: 1, scale: 0.1}, // count
		Dictionary:    features.DictionaryFrom(0, nil),
		Keyphraseness: features.NewKeyphraseness(),
	}

	docs := []ingest.Document{
		{ID: "a", Text: "Soil. Crop. Soil. Water. Crop. Soil.", Topics: []string{"crop"}},
		{ID: "b", Text: "Water."},
	}
	results, err := p.Apply(context.Background(), m, docs)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(results) != 2 || results[0].Document.ID != "a" || results[1].Document.ID != "b" {
		t.Fatalf("Expected results in input order, got %+v", results)
	}

	var titles []string
	for _, topic := range results[0].Topics {
		titles = append(titles, topic.Title)
	}
	if !reflect.DeepEqual(titles, []string{"Soil", "Crop"}) {
		t.Errorf("Expected [Soil Crop], got %v", titles)
	}
	if results[0].Topics[0].Correct || !results[0].Topics[1].Correct {
		t.Errorf("Expected only Crop flagged correct, got %+v", results[0].Topics)
	}
	if results[0].GoldCount != 1 || results[0].Matched() != 1 {
		t.Errorf("Expected 1 gold and 1 matched, got %d and %d", results[0].GoldCount, results[0].Matched())
	}
	got := results[0].Metrics()
	if got.Precision != 0.5 || got.Recall != 1 {
		t.Errorf("Expected precision 0.5 recall 1, got %+v", got)
	}

	ms := Evaluate(results)
	if len(ms) != 1 {
		t.Errorf("Expected metrics only for documents with gold, got %d", len(ms))
	}
}

func TestApplyGlobalDictionaryFromTest(t *testing.T) {
	docs := []ingest.Document{
		{ID: "a", Text: "Soil. Crop."},
		{ID: "b", Text: "Soil. Water."},
	}
	model := func(p *Pipeline) *Model {
		return &Model{
			ID:            "m",
			Schema:        p.Schema(),
			Scorer:        featureScorer{index: 1, scale: 0.1}, // idf
			Dictionary:    features.DictionaryFrom(0, nil),
			Keyphraseness: features.NewKeyphraseness(),
		}
	}

	// The model's empty dictionary gives every candidate idf 0, which the
	// cutoff drops.
	p := New(Options{Families: features.Families{Frequency: true}})
	results, err := p.Apply(context.Background(), model(p), docs)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(results[0].Topics) != 0 {
		t.Errorf("Expected no topics with the model dictionary, got %+v", results[0].Topics)
	}

	p = New(Options{Families: features.Families{Frequency: true}, GlobalDictionaryFromTest: true})
	results, err = p.Apply(context.Background(), model(p), docs)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(results[0].Topics) != 1 || results[0].Topics[0].Title != "Crop" {
		t.Fatalf("Expected only Crop, got %+v", results[0].Topics)
	}
	want := math.Log(2) * 0.1
	if math.Abs(results[0].Topics[0].Score-want) > 1e-12 {
		t.Errorf("Expected score %v, got %v", want, results[0].Topics[0].Score)
	}
}

func TestApplySchemaMismatch(t *testing.T) {
	p := New(Options{Families: features.Families{Basic: true}})
	m := &Model{ID: "m", Schema: features.NewSchema(features.AllFamilies()), Scorer: featureScorer{}}
	if _, err := p.Apply(context.Background(), m, nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestTrainWithoutGold(t *testing.T) {
	p := New(Options{})
	_, err := p.Train(context.Background(), []ingest.Document{{ID: "a", Text: "Soil erosion."}})
	if !errors.Is(err, domain.ErrTraining) {
		t.Errorf("Expected ErrTraining, got %v", err)
	}
}

func TestTrainCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(Options{})
	if _, err := p.Train(ctx, farmDocs()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTrainApplyWithVocabulary(t *testing.T) {
	ctx := context.Background()
	vs, norm := agrovoc()
	gen := ingest.NewGenerator(englishStops())
	gen.Vocabulary = vs
	p := New(Options{Generator: gen, Topics: 5, Metadata: map[string]string{"stemmer": "sremoval"}})

	m, err := p.Train(ctx, farmDocs())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(m.ID) != 26 {
		t.Errorf("Expected a ULID, got %q", m.ID)
	}
	if !reflect.DeepEqual(m.Schema, p.Schema()) {
		t.Errorf("Expected schema %v, got %v", p.Schema(), m.Schema)
	}
	if m.VocabularyName() != "agrovoc" {
		t.Errorf("Expected vocabulary agrovoc, got %q", m.VocabularyName())
	}
	if m.Dictionary.Docs() != 4 {
		t.Errorf("Expected dictionary over 4 docs, got %d", m.Dictionary.Docs())
	}
	if m.Metadata["stemmer"] != "sremoval" {
		t.Errorf("Expected metadata to be recorded, got %v", m.Metadata)
	}

	results, err := p.Apply(ctx, m, farmDocs())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, r := range results {
		if len(r.Topics) > 5 {
			t.Errorf("%s: expected at most 5 topics, got %d", r.Document.ID, len(r.Topics))
		}
		for i := 1; i < len(r.Topics); i++ {
			if r.Topics[i].Score > r.Topics[i-1].Score {
				t.Errorf("%s: topics not in descending score order: %+v", r.Document.ID, r.Topics)
			}
		}
		if r.Matched() > r.GoldCount {
			t.Errorf("%s: matched %d exceeds gold %d", r.Document.ID, r.Matched(), r.GoldCount)
		}
	}

	// Round trip through a store scores identically.
	st := memstore.New()
	if err := Save(ctx, st, "farm", m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(ctx, st, "farm", nil, func(string) *vocab.Normalizer { return norm })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != m.ID || loaded.VocabularyName() != "agrovoc" {
		t.Errorf("Expected model %s with agrovoc, got %s with %q", m.ID, loaded.ID, loaded.VocabularyName())
	}
	again, err := p.Apply(ctx, loaded, farmDocs())
	if err != nil {
		t.Fatalf("Apply loaded: %v", err)
	}
	if !reflect.DeepEqual(again, results) {
		t.Errorf("Expected identical results after reload\nbefore: %+v\nafter:  %+v", results, again)
	}

	// A pipeline without the vocabulary cannot apply the model.
	if _, err := New(Options{}).Apply(ctx, m, farmDocs()); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for a vocabulary mismatch, got %v", err)
	}
}

func TestFromArtifactNeedsVocabulary(t *testing.T) {
	vs, _ := agrovoc()
	gen := ingest.NewGenerator(englishStops())
	gen.Vocabulary = vs
	m, err := New(Options{Generator: gen}).Train(context.Background(), farmDocs())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	a, err := m.Artifact()
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if _, err := FromArtifact(a, nil, nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestLoadMissingModel(t *testing.T) {
	_, err := Load(context.Background(), memstore.New(), "nope", nil, nil)
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}
}

func TestCrossValidate(t *testing.T) {
	vs, _ := agrovoc()
	gen := ingest.NewGenerator(englishStops())
	gen.Vocabulary = vs
	p := New(Options{Generator: gen, Scorer: "bayes"})

	report, err := p.CrossValidate(context.Background(), farmDocs(), 2)
	if err != nil {
		t.Fatalf("CrossValidate: %v", err)
	}
	if len(report.Folds) != 2 {
		t.Fatalf("Expected 2 folds, got %d", len(report.Folds))
	}
	if report.Folds[0].Fold.Start != 0 || report.Folds[0].Fold.End != 2 {
		t.Errorf("Expected first fold to test [0,2), got %+v", report.Folds[0].Fold)
	}
	for _, v := range []float64{report.Mean.Precision, report.Mean.Recall, report.Mean.F1} {
		if v < 0 || v > 1 {
			t.Errorf("Expected metrics in [0,1], got %+v", report.Mean)
		}
	}
}
