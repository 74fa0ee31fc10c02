package vocab

import (
	"testing"

	"github.com/cognicore/topix/pkg/topix/stem"
	"github.com/cognicore/topix/pkg/topix/stoplist"
)

func englishNormalizer(vocabulary string) *Normalizer {
	stops, _ := stoplist.DefaultRegistry().Lookup("en")
	return NewNormalizer(stem.SRemoval{}, stops, PolicyFor(vocabulary))
}

func TestNormalize(t *testing.T) {
	n := englishNormalizer("agrovoc")

	tests := []struct {
		in   string
		want string
	}{
		{"Economic development", "development economic"},
		{"Board of Directors", "board director"},
		{"  fish   &  chips ", "chip fish"},
		{"*Immunology", "immunology"},
		{"Note: taking", "note taking"},
		{"soil * erosion", "erosion soil"},
		{"NASA", "nasa"},
		{"The", "the"},
		{"farmer's markets", "farmer market"},
		{"U.S.", "U.S."},
		{"semi-", "semi-"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCaseRule(t *testing.T) {
	n := NewNormalizer(nil, nil, DefaultPolicy)
	n.Reorder = false

	tests := []struct {
		in   string
		want string
	}{
		{"NASA", "NASA"},
		{"FAO", "FAO"},
		{"UNESCO", "unesco"},
		{"Rice Fields", "rice fields"},
		{"DNA tests", "dna tests"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMeshTruncation(t *testing.T) {
	mesh := englishNormalizer("mesh")
	if got := mesh.Normalize("Monocytes/immunology/microbiology"); got != "monocyte" {
		t.Errorf("Expected 'monocyte', got %q", got)
	}

	other := englishNormalizer("agrovoc")
	if got := other.Normalize("input/output"); got != "input/output" {
		t.Errorf("Expected no truncation outside mesh, got %q", got)
	}
}

func TestNormalizeLiteralSuffixPolicy(t *testing.T) {
	n := englishNormalizer("agrovoc")
	n.Policy.LiteralSuffixes = nil

	if got := n.Normalize("Anti-"); got != "anti-" {
		t.Errorf("Expected suffix rule disabled, got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	stops, _ := stoplist.DefaultRegistry().Lookup("en")

	stemmers := []struct {
		name    string
		stemmer stem.Stemmer
	}{
		{"sremoval", stem.SRemoval{}},
		{"snowball english", stem.NewSnowball("english")},
		{"none", nil},
	}
	phrases := []string{
		"Economic development",
		"development of the economic policies",
		"Board of Directors",
		"NASA",
		"The",
		"soil & water: conservation",
		"Rice Fields",
		"farmer's markets",
		"the of and",
		"relational databases",
		"universities",
		"developmental",
		"others",
	}
	for _, st := range stemmers {
		t.Run(st.name, func(t *testing.T) {
			n := NewNormalizer(st.stemmer, stops, PolicyFor("agrovoc"))
			for _, p := range phrases {
				once := n.Normalize(p)
				twice := n.Normalize(once)
				if once != twice {
					t.Errorf("Expected %q to be stable for %q, got %q", once, p, twice)
				}
			}
		})
	}
}

func TestNormalizeOrderInsensitive(t *testing.T) {
	n := englishNormalizer("agrovoc")

	a := n.Normalize("economic development")
	b := n.Normalize("development economic")
	if a != b {
		t.Errorf("Expected same key, got %q and %q", a, b)
	}
}

func TestNormalizeLcshKeepsStopwords(t *testing.T) {
	stops, _ := stoplist.DefaultRegistry().Lookup("en")
	n := NewNormalizer(nil, stops, PolicyFor("lcsh"))

	if n.Stopwords != nil {
		t.Fatal("lcsh policy should disable stopwords")
	}
	if got := n.Normalize("history of art"); got != "art history of" {
		t.Errorf("Expected stopwords kept, got %q", got)
	}
}

func TestPolicyFor(t *testing.T) {
	if p := PolicyFor("MeSH"); p.TruncateAt != '/' {
		t.Error("mesh should truncate at '/'")
	}
	if p := PolicyFor("lcsh"); !p.SkipParenthesizedAliases || !p.NoStopwords {
		t.Errorf("unexpected lcsh policy: %+v", p)
	}
	if p := PolicyFor("agrovoc"); p.TruncateAt != 0 || len(p.LiteralSuffixes) != 2 {
		t.Errorf("unexpected default policy: %+v", p)
	}
}
