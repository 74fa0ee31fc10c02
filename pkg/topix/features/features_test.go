package features

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/ingest"
	"github.com/cognicore/topix/pkg/topix/stem"
	"github.com/cognicore/topix/pkg/topix/stoplist"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

func TestNewSchema(t *testing.T) {
	all := NewSchema(AllFamilies())
	if len(all) != 13 {
		t.Errorf("Expected 13 features, got %d: %v", len(all), all)
	}

	basic := NewSchema(Families{Basic: true, Thesaurus: true})
	expected := Schema{Length, Count, FirstOccurrence, LastOccurrence, Spread,
		Generality, RelatedCount, Ambiguous, NodeDegree}
	if !reflect.DeepEqual(basic, expected) {
		t.Errorf("Expected %v, got %v", expected, basic)
	}
	if basic.Has(TF) || !basic.Has(NodeDegree) {
		t.Error("Has should follow the enabled families")
	}
}

func TestSchemaCheck(t *testing.T) {
	a := NewSchema(AllFamilies())
	if err := a.Check(NewSchema(AllFamilies())); err != nil {
		t.Errorf("identical schemas should match: %v", err)
	}

	b := NewSchema(Families{Basic: true})
	if err := a.Check(b); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}

	reordered := Schema{Count, Length}
	if err := (Schema{Length, Count}).Check(reordered); err == nil {
		t.Error("order matters")
	}
}

func TestDictionary(t *testing.T) {
	d := NewDictionary()
	d.AddDocument([]string{"rice", "maize"})
	d.AddDocument([]string{"rice"})
	d.AddDocument([]string{"wheat"})

	if d.Docs() != 3 || d.DF("rice") != 2 || d.DF("barley") != 0 {
		t.Errorf("unexpected counts: N=%d df(rice)=%d", d.Docs(), d.DF("rice"))
	}

	want := -math.Log(3.0 / 4.0)
	if got := d.IDF("rice", false); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(rice) = %f, want %f", got, want)
	}
	want = -math.Log(2.0 / 3.0)
	if got := d.IDF("rice", true); math.Abs(got-want) > 1e-12 {
		t.Errorf("leave-one-out IDF(rice) = %f, want %f", got, want)
	}
	if got := d.IDF("barley", true); math.Abs(got-math.Log(4)) > 1e-12 {
		t.Errorf("unseen keys are not adjusted, got %f", got)
	}

	d.Freeze()
	if err := d.AddDocument([]string{"oats"}); !errors.Is(err, ErrFrozen) {
		t.Errorf("Expected ErrFrozen, got %v", err)
	}
	if d.Docs() != 3 {
		t.Error("frozen dictionary must not change")
	}

	restored := DictionaryFrom(d.Docs(), d.Entries())
	if !restored.Frozen() || restored.DF("rice") != 2 || restored.Len() != 3 {
		t.Error("restored dictionary should match")
	}
}

func TestDictionaryConcurrentBuild(t *testing.T) {
	d := NewDictionary()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.AddDocument([]string{"rice", "maize"})
		}()
	}
	wg.Wait()
	d.Freeze()

	if d.Docs() != 50 || d.DF("rice") != 50 {
		t.Errorf("Expected 50 documents, got N=%d df=%d", d.Docs(), d.DF("rice"))
	}
}

func TestKeyphraseness(t *testing.T) {
	k := NewKeyphraseness()
	k.AddDocument([]string{"rice", "flood"})
	k.AddDocument([]string{"rice"})

	if got := k.Value("rice", false); got != 2 {
		t.Errorf("Expected 2, got %f", got)
	}
	if got := k.Value("rice", true); got != 1 {
		t.Errorf("Expected leave-one-out 1, got %f", got)
	}
	if got := k.Value("barley", true); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if !reflect.DeepEqual(KeyphrasenessFrom(k.Entries()).Entries(), k.Entries()) {
		t.Error("restored table should match")
	}
}

func englishSetup() (*stoplist.Set, *vocab.Normalizer) {
	stops, _ := stoplist.DefaultRegistry().Lookup("en")
	return stops, vocab.NewNormalizer(stem.SRemoval{}, stops, vocab.DefaultPolicy)
}

func TestGoldMatches(t *testing.T) {
	stops, norm := englishSetup()
	g := ingest.NewGenerator(stops)
	g.Normalizer = norm

	cands := g.Generate(ingest.NewTokenizer().Tokenize("Rice fields and flooded rice fields"))
	gold := NewGold([]string{"rice field", "Rice Fields", "drought"}, norm.Normalize, nil)

	if gold.Count() != 2 {
		t.Errorf("duplicate gold topics should collapse, got %d", gold.Count())
	}

	matched := 0
	for _, c := range cands {
		if gold.Matches(c) {
			matched++
			if c.Key != "field rice" {
				t.Errorf("unexpected match %q", c.Key)
			}
		}
	}
	if matched != 1 {
		t.Errorf("Expected exactly one matching candidate, got %d", matched)
	}
}

func conceptSetup() (*ingest.Generator, *vocab.Store) {
	stops, norm := englishSetup()
	store := vocab.BuildFromTriples([]vocab.Triple{
		{Subject: "c1", Relation: vocab.RelPrefLabel, Object: "Maize"},
		{Subject: "c1", Relation: vocab.RelAltLabel, Object: "Corn"},
		{Subject: "c2", Relation: vocab.RelPrefLabel, Object: "Yield"},
		{Subject: "c3", Relation: vocab.RelPrefLabel, Object: "Cereals"},
		{Subject: "c1", Relation: vocab.RelBroader, Object: "c3"},
		{Subject: "c1", Relation: vocab.RelRelated, Object: "c2"},
		{Subject: "c4", Relation: vocab.RelPrefLabel, Object: "Bank"},
		{Subject: "c5", Relation: vocab.RelPrefLabel, Object: "Bank (river)"},
		{Subject: "c5", Relation: vocab.RelAltLabel, Object: "bank"},
	}, vocab.BuildOptions{Name: "agrovoc", Normalizer: norm})

	g := ingest.NewGenerator(stops)
	g.Vocabulary = store
	return g, store
}

func TestGoldMatchesConcept(t *testing.T) {
	g, store := conceptSetup()
	cands := g.Generate(ingest.NewTokenizer().Tokenize("corn yields"))

	gold := NewGold([]string{"Maize"}, store.Normalize, store)
	if !gold.Matches(cands[0]) {
		t.Error("alias spelling should match the gold concept")
	}
	if !reflect.DeepEqual(gold.StatsKeys(), []string{"@c1"}) {
		t.Errorf("StatsKeys = %v", gold.StatsKeys())
	}
	if StatsKey(cands[0]) != "@c1" {
		t.Errorf("StatsKey = %q", StatsKey(cands[0]))
	}
}

func TestExtractorBasicAndFrequency(t *testing.T) {
	_, norm := englishSetup()
	g := ingest.NewGenerator(nil)
	g.Normalizer = norm
	g.MaxPhraseLength = 1

	tokens := ingest.NewTokenizer().Tokenize("rice wheat rice barley")
	cands := g.Generate(tokens)
	rice := cands[0]

	dict := NewDictionary()
	dict.AddDocument([]string{"rice"})
	dict.AddDocument([]string{"wheat"})
	dict.Freeze()

	e := &Extractor{
		Schema:     NewSchema(Families{Basic: true, Frequency: true}),
		Dictionary: dict,
	}
	v := e.Vector(rice, NewDocStats(len(tokens), cands, false), false, false)

	idf := -math.Log(2.0 / 3.0)
	expected := Vector{1, 2, 0, 0.5, 0.5, 0.5, idf, 0.5 * idf}
	if len(v) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(v))
	}
	for i := range expected {
		if math.Abs(v[i]-expected[i]) > 1e-12 {
			t.Errorf("%s = %f, want %f", e.Schema[i], v[i], expected[i])
		}
	}
}

func TestExtractorKeyphrasenessLeaveOneOut(t *testing.T) {
	g := ingest.NewGenerator(nil)
	cands := g.Generate(ingest.NewTokenizer().Tokenize("rice"))

	kp := NewKeyphraseness()
	kp.AddDocument([]string{"rice"})
	kp.AddDocument([]string{"rice"})

	e := &Extractor{Schema: Schema{KeyphrasenessFeature}, Keyphraseness: kp}
	doc := NewDocStats(1, cands, false)

	if v := e.Vector(cands[0], doc, true, true); v[0] != 1 {
		t.Errorf("training gold candidate: expected 1, got %f", v[0])
	}
	if v := e.Vector(cands[0], doc, true, false); v[0] != 2 {
		t.Errorf("training non-gold candidate: expected 2, got %f", v[0])
	}
	if v := e.Vector(cands[0], doc, false, false); v[0] != 2 {
		t.Errorf("application: expected 2, got %f", v[0])
	}
}

func TestExtractorThesaurus(t *testing.T) {
	g, store := conceptSetup()
	tokens := ingest.NewTokenizer().Tokenize("corn yield. cereals. bank")
	cands := g.Generate(tokens)

	e := &Extractor{Schema: NewSchema(Families{Thesaurus: true}), Vocabulary: store}
	doc := NewDocStats(len(tokens), cands, false)

	byTitle := map[string]Vector{}
	for _, c := range cands {
		byTitle[c.Title] = e.Vector(c, doc, false, false)
	}

	// generality, related_count, ambiguous, node_degree
	tests := []struct {
		title string
		want  Vector
	}{
		{"Maize", Vector{0.5, 2, 0, 2}},
		{"Yield", Vector{1, 1, 0, 1}},
		{"Cereals", Vector{1, 0, 0, 0}},
		{"bank", Vector{1, 0, 1, 0}},
	}
	for _, tt := range tests {
		got, ok := byTitle[tt.title]
		if !ok {
			t.Errorf("candidate %q missing", tt.title)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestExtractorWithoutSources(t *testing.T) {
	g := ingest.NewGenerator(nil)
	cands := g.Generate(ingest.NewTokenizer().Tokenize("rice"))

	e := &Extractor{Schema: NewSchema(AllFamilies())}
	v := e.Vector(cands[0], NewDocStats(0, cands, false), false, false)
	if len(v) != 13 {
		t.Fatalf("Expected 13 values, got %d", len(v))
	}
	for i, name := range e.Schema {
		if name == IDF || name == TFIDF || name == KeyphrasenessFeature || name == Generality {
			if v[i] != 0 {
				t.Errorf("%s should be 0 without a source, got %f", name, v[i])
			}
		}
	}
}
